package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationMessage carries a rendered notification to downstream consumers.
type NotificationMessage struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationMessage creates a message with a fresh id.
func NewNotificationMessage(recipient, content string) *NotificationMessage {
	return &NotificationMessage{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON creates a message from JSON bytes
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
