package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// Refresh reasons.
const (
	ReasonCreated   = "created"
	ReasonUpdated   = "updated"
	ReasonDeleted   = "deleted"
	ReasonScheduled = "scheduled"
	ReasonManual    = "manual"
)

// RefreshMessage asks dashboard instances to reload their view.
// It carries no transaction data; consumers refetch from the backend.
type RefreshMessage struct {
	Reason        string    `json:"reason"`
	TransactionID core.ID   `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewRefreshMessage creates a refresh message stamped with the current time.
func NewRefreshMessage(reason string, id core.ID) *RefreshMessage {
	return &RefreshMessage{
		Reason:        reason,
		TransactionID: id,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes a message from JSON bytes.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
