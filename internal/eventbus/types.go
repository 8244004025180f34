package eventbus

import (
	"encoding/json"
	"fmt"
)

type Event interface {
	Subject() string
}

// Handler receives the raw payload of one delivered event.
type Handler func(data []byte)

type Emitter interface {
	Emit(event Event) error
}

type EventBus interface {
	Emitter
	Close() error
}

// Nop drops every event. It is used when no bus is configured.
type Nop struct{}

func (Nop) Emit(Event) error { return nil }

func (Nop) Close() error { return nil }

// Decode unmarshals a delivered payload into a typed event.
func Decode[T Event](data []byte) (T, error) {
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal %s event: %w", event.Subject(), err)
	}
	return event, nil
}
