package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CheckIssuedMessage announces an issued check. It carries identifiers only;
// consumers load the check from storage.
type CheckIssuedMessage struct {
	ID        uuid.UUID `json:"id"`
	CheckID   int64     `json:"check_id"`
	Reference string    `json:"reference"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCheckIssuedMessage stamps a new message with a random id.
func NewCheckIssuedMessage(checkID int64, reference string, version int64) *CheckIssuedMessage {
	return &CheckIssuedMessage{
		ID:        uuid.New(),
		CheckID:   checkID,
		Reference: reference,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *CheckIssuedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CheckIssuedMessageFromJSON(data []byte) (*CheckIssuedMessage, error) {
	var msg CheckIssuedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Reference == "" {
		return nil, errors.New("message has no reference")
	}
	return &msg, nil
}
