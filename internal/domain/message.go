package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageID string

// Message is one chat message as fanned out to a room and handed to the
// store. ClientTempID is echoed back so the sending client can reconcile
// its optimistic local copy.
type Message struct {
	ID           MessageID `json:"id"`
	RoomID       RoomID    `json:"room_id"`
	AuthorID     UserID    `json:"author_id"`
	Content      string    `json:"content"`
	SentAt       time.Time `json:"sent_at"`
	ClientTempID string    `json:"client_temp_id,omitempty"`
}

func NewMessage(room RoomID, author UserID, content, clientTempID string) Message {
	return Message{
		ID:           MessageID(uuid.NewString()),
		RoomID:       room,
		AuthorID:     author,
		Content:      content,
		SentAt:       time.Now().UTC(),
		ClientTempID: clientTempID,
	}
}
