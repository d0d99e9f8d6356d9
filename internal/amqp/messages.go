package amqp

import (
	"encoding/json"
	"errors"

	"spendsheet/internal/core"
)

// EncodeEvent converts an event to its JSON wire form.
func EncodeEvent(ev core.LedgerEvent) ([]byte, error) {
	if ev.Type == "" {
		return nil, errors.New("event type is required")
	}
	return json.Marshal(ev)
}

// DecodeEvent parses a JSON message body. Messages without a type are rejected.
func DecodeEvent(data []byte) (core.LedgerEvent, error) {
	var ev core.LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.LedgerEvent{}, err
	}
	if ev.Type == "" {
		return core.LedgerEvent{}, errors.New("event type is missing")
	}
	return ev, nil
}
