package app

import (
	"time"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// PresenceTracker converts registry transitions into at-most-once
// online/offline events. The transition decision (First/Last) is made
// inside the registry's critical section, so two racing connects for the
// same offline user cannot both observe "I was the first"; emission
// itself happens outside the lock, never under it.
type PresenceTracker struct {
	registry *ConnectionRegistry
	sink     core.EventSink
	clock    func() time.Time
}

func NewPresenceTracker(registry *ConnectionRegistry, sink core.EventSink) *PresenceTracker {
	return &PresenceTracker{
		registry: registry,
		sink:     sink,
		clock:    time.Now,
	}
}

// ConnectionOpened registers the connection and emits UserOnline on a
// 0->1 transition.
func (p *PresenceTracker) ConnectionOpened(user domain.UserID, conn core.ConnID) AddResult {
	res := p.registry.Add(user, conn)
	if res.First {
		log.Info().Str("module", "app.presence").Str("user", string(user)).Msg("user online")
		p.emit(core.UserOnline{UserID: user, At: p.clock().UTC()})
	}
	return res
}

// ConnectionClosed deregisters the connection and emits UserOffline on a
// 1->0 transition.
func (p *PresenceTracker) ConnectionClosed(user domain.UserID, conn core.ConnID) RemoveResult {
	res := p.registry.Remove(user, conn)
	if res.Last {
		log.Info().Str("module", "app.presence").Str("user", string(user)).Msg("user offline")
		p.emit(core.UserOffline{UserID: user, At: p.clock().UTC()})
	}
	return res
}

func (p *PresenceTracker) Online(user domain.UserID) bool {
	return p.registry.HasConnections(user)
}

func (p *PresenceTracker) emit(ev core.Event) {
	if p.sink != nil {
		p.sink(ev)
	}
}
