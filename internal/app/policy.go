package app

import (
	"context"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickSession
)

// BackpressurePolicy decides what to do with a recipient whose send
// queue overflowed during fan-out.
type BackpressurePolicy interface {
	OnBackpressure(room domain.RoomID, conn core.ConnID) BackpressureAction
}

// DropPolicy drops the frame for the slow recipient and moves on. A
// single unresponsive client never stalls the rest of the room.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(domain.RoomID, core.ConnID) BackpressureAction {
	return DropFrame
}

// KickPolicy disconnects chronically slow clients instead of letting
// their queues overflow silently.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(domain.RoomID, core.ConnID) BackpressureAction {
	return KickSession
}

// AllowAllRooms is the default access policy: any authenticated user may
// join any room.
type AllowAllRooms struct{}

func (AllowAllRooms) CanJoin(context.Context, domain.UserID, domain.RoomID) error {
	return nil
}

var _ core.RoomPolicy = AllowAllRooms{}
