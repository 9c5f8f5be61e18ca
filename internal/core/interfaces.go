package core

import (
	"context"

	"github.com/avelk/Parley/internal/domain"
)

// ConnID identifies one live transport session. Opaque, unique for the
// lifetime of the physical connection.
type ConnID string

// ClientConn abstracts the push side of one transport connection.
// Owned by the adapter; the adapter must Close() it. TrySend must never
// block: a full send queue returns ErrBackpressure and the frame is
// dropped for this recipient only.
type ClientConn interface {
	TrySend(Event) error
	Close()
}

// Credentials is what the transport layer extracted from the handshake.
type Credentials struct {
	Token string
}

// IdentityResolver turns connection credentials into a user identity.
// Implementations return ErrAuthentication when the token is absent or
// invalid.
type IdentityResolver interface {
	Resolve(ctx context.Context, creds Credentials) (domain.UserID, error)
}

// RoomPolicy decides whether a user may join a room. Pure policy, no
// membership tracking.
type RoomPolicy interface {
	CanJoin(ctx context.Context, user domain.UserID, room domain.RoomID) error
}

// MessageStore is the durable-storage collaborator. Calls are best-effort
// and decoupled from the broadcast path: a failure is logged, never
// surfaced to room members.
type MessageStore interface {
	Persist(ctx context.Context, msg domain.Message) error
	UpdateReadPosition(ctx context.Context, user domain.UserID, room domain.RoomID, msg domain.MessageID) error
}
