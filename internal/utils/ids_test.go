package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnIDRoundTrip(t *testing.T) {
	contextID := NewContextID()
	require.True(t, ValidID(contextID))

	turnID := NewTurnID(contextID)
	assert.True(t, IsTurnID(turnID))

	got, err := ContextIDOfTurn(turnID)
	require.NoError(t, err)
	assert.Equal(t, contextID, got)
}

func TestContextIDOfTurnRejectsOtherIDs(t *testing.T) {
	_, err := ContextIDOfTurn(NewContextID())
	assert.Error(t, err)
	assert.False(t, ValidID("not-a-uuid"))
	assert.NotEqual(t, NewMessageID(), NewMessageID())
}
