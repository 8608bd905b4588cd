package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType constants
const (
	EventTypeTransferSubmitted = "TransferSubmitted"
	EventTypeTransferRejected  = "TransferRejected"
)

// Event is the base interface for all events
type Event interface {
	GetType() string
	GetTransferID() string
}

// EventEnvelope wraps an event with metadata for serialization
type EventEnvelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// TransferSubmitted is emitted once the ledger confirmed a transfer
type TransferSubmitted struct {
	TransferID string `json:"transfer_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     uint64 `json:"amount"`
	Signature  string `json:"signature"`
}

func (e TransferSubmitted) GetType() string       { return EventTypeTransferSubmitted }
func (e TransferSubmitted) GetTransferID() string { return e.TransferID }

// TransferRejected is emitted when a transfer was refused locally or by the ledger
type TransferRejected struct {
	TransferID string `json:"transfer_id"`
	To         string `json:"to"`
	Amount     uint64 `json:"amount"`
	Reason     string `json:"reason"`
}

func (e TransferRejected) GetType() string       { return EventTypeTransferRejected }
func (e TransferRejected) GetTransferID() string { return e.TransferID }

// SerializeEvent converts an event to JSON bytes with envelope
func SerializeEvent(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	envelope := EventEnvelope{
		Type:      event.GetType(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	return json.Marshal(envelope)
}

// DeserializeEvent converts JSON bytes back to an Event
func DeserializeEvent(data []byte) (Event, error) {
	var envelope EventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	var event Event
	switch envelope.Type {
	case EventTypeTransferSubmitted:
		var e TransferSubmitted
		if err := json.Unmarshal(envelope.Data, &e); err != nil {
			return nil, err
		}
		event = e
	case EventTypeTransferRejected:
		var e TransferRejected
		if err := json.Unmarshal(envelope.Data, &e); err != nil {
			return nil, err
		}
		event = e
	default:
		return nil, fmt.Errorf("unknown event type: %s", envelope.Type)
	}

	return event, nil
}
