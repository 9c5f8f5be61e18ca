package ws

import (
	"encoding/json"
	"fmt"

	"github.com/avelk/Parley/internal/core"
)

// Wire event names. The enumeration is closed: encodeEvent refuses
// anything it does not know about instead of guessing a name.
const (
	wireUserOnline  = "user_online"
	wireUserOffline = "user_offline"
	wireUserJoined  = "user_joined"
	wireUserLeft    = "user_left"
	wireMessage     = "message"
	wireTyping      = "typing"
	wireMessageRead = "message_read"
)

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func encodeEvent(ev core.Event) ([]byte, error) {
	var name string
	switch ev.(type) {
	case core.UserOnline:
		name = wireUserOnline
	case core.UserOffline:
		name = wireUserOffline
	case core.UserJoinedRoom:
		name = wireUserJoined
	case core.UserLeftRoom:
		name = wireUserLeft
	case core.MessageReceived:
		name = wireMessage
	case core.UserTyping:
		name = wireTyping
	case core.MessageRead:
		name = wireMessageRead
	default:
		return nil, fmt.Errorf("unknown event kind %d", ev.Kind())
	}
	return json.Marshal(envelope{Type: name, Data: ev})
}
