package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const turnPrefix = "turn:"

// NewContextID returns the id of a new conversation context.
func NewContextID() string {
	return uuid.New().String()
}

func NewMessageID() string {
	return uuid.New().String()
}

// NewTurnID scopes a turn id to its conversation context.
func NewTurnID(contextID string) string {
	return fmt.Sprintf("%s%s:%s", turnPrefix, contextID, uuid.New().String())
}

func IsTurnID(id string) bool {
	parts := strings.Split(id, ":")
	return len(parts) == 3 && parts[0]+":" == turnPrefix
}

// ContextIDOfTurn returns the context a turn id was issued for.
func ContextIDOfTurn(turnID string) (string, error) {
	if !IsTurnID(turnID) {
		return "", fmt.Errorf("not a turn id: %s", turnID)
	}
	return strings.Split(turnID, ":")[1], nil
}

// ValidID reports whether id is a well formed context or message id.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
