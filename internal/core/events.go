package core

import (
	"time"

	"github.com/avelk/Parley/internal/domain"
)

// EventKind is the closed enumeration of outbound event types. Adapters
// translate kinds into wire names with an explicit switch; business code
// never deals in strings.
type EventKind int

const (
	KindUserOnline EventKind = iota
	KindUserOffline
	KindUserJoinedRoom
	KindUserLeftRoom
	KindMessageReceived
	KindUserTyping
	KindMessageRead
)

// Event is the sealed union of everything the gateway pushes to clients.
type Event interface {
	Kind() EventKind
}

type UserOnline struct {
	UserID domain.UserID `json:"user_id"`
	At     time.Time     `json:"at"`
}

type UserOffline struct {
	UserID domain.UserID `json:"user_id"`
	At     time.Time     `json:"at"`
}

type UserJoinedRoom struct {
	UserID domain.UserID `json:"user_id"`
	RoomID domain.RoomID `json:"room_id"`
}

type UserLeftRoom struct {
	UserID domain.UserID `json:"user_id"`
	RoomID domain.RoomID `json:"room_id"`
}

type MessageReceived struct {
	Message domain.Message `json:"message"`
}

type UserTyping struct {
	UserID domain.UserID `json:"user_id"`
	RoomID domain.RoomID `json:"room_id"`
	Typing bool          `json:"typing"`
	At     time.Time     `json:"at"`
}

type MessageRead struct {
	UserID    domain.UserID    `json:"user_id"`
	RoomID    domain.RoomID    `json:"room_id"`
	MessageID domain.MessageID `json:"message_id"`
	At        time.Time        `json:"at"`
}

func (UserOnline) Kind() EventKind      { return KindUserOnline }
func (UserOffline) Kind() EventKind     { return KindUserOffline }
func (UserJoinedRoom) Kind() EventKind  { return KindUserJoinedRoom }
func (UserLeftRoom) Kind() EventKind    { return KindUserLeftRoom }
func (MessageReceived) Kind() EventKind { return KindMessageReceived }
func (UserTyping) Kind() EventKind      { return KindUserTyping }
func (MessageRead) Kind() EventKind     { return KindMessageRead }

// EventSink receives presence transitions from the tracker.
type EventSink func(Event)
