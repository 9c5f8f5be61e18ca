package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *eventRecorder) sink(ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) countKind(k core.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind() == k {
			n++
		}
	}
	return n
}

func TestPresence_OnlineOfflineLifecycle(t *testing.T) {
	req := require.New(t)
	rec := &eventRecorder{}
	p := NewPresenceTracker(NewConnectionRegistry(), rec.sink)
	user := domain.UserID(uuid.NewString())
	c1 := core.ConnID(uuid.NewString())
	c2 := core.ConnID(uuid.NewString())

	// First connection: exactly one online event.
	p.ConnectionOpened(user, c1)
	req.True(p.Online(user))
	req.Equal(1, rec.countKind(core.KindUserOnline))

	// Second connection: no additional presence event.
	p.ConnectionOpened(user, c2)
	req.Equal(1, rec.countKind(core.KindUserOnline))

	// First disconnect: still online, no event.
	p.ConnectionClosed(user, c1)
	req.True(p.Online(user))
	req.Equal(0, rec.countKind(core.KindUserOffline))

	// Last disconnect: exactly one offline event.
	p.ConnectionClosed(user, c2)
	req.False(p.Online(user))
	req.Equal(1, rec.countKind(core.KindUserOffline))
}

func TestPresence_ReconnectFiresAgain(t *testing.T) {
	req := require.New(t)
	rec := &eventRecorder{}
	p := NewPresenceTracker(NewConnectionRegistry(), rec.sink)
	user := domain.UserID(uuid.NewString())

	c := core.ConnID(uuid.NewString())
	p.ConnectionOpened(user, c)
	p.ConnectionClosed(user, c)
	p.ConnectionOpened(user, core.ConnID(uuid.NewString()))

	req.Equal(2, rec.countKind(core.KindUserOnline))
	req.Equal(1, rec.countKind(core.KindUserOffline))
}

func TestPresence_ConcurrentConnectsFireOnlineOnce(t *testing.T) {
	req := require.New(t)
	rec := &eventRecorder{}
	p := NewPresenceTracker(NewConnectionRegistry(), rec.sink)
	user := domain.UserID(uuid.NewString())

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.ConnectionOpened(user, core.ConnID(fmt.Sprintf("conn-%d", i)))
		}(i)
	}
	wg.Wait()

	req.Equal(1, rec.countKind(core.KindUserOnline))
	req.True(p.Online(user))
}

func TestPresence_ConcurrentDisconnectsFireOfflineOnce(t *testing.T) {
	req := require.New(t)
	rec := &eventRecorder{}
	p := NewPresenceTracker(NewConnectionRegistry(), rec.sink)
	user := domain.UserID(uuid.NewString())

	const n = 32
	conns := make([]core.ConnID, n)
	for i := range conns {
		conns[i] = core.ConnID(fmt.Sprintf("conn-%d", i))
		p.ConnectionOpened(user, conns[i])
	}

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn core.ConnID) {
			defer wg.Done()
			p.ConnectionClosed(user, conn)
		}(conn)
	}
	wg.Wait()

	req.Equal(1, rec.countKind(core.KindUserOffline))
	req.False(p.Online(user))
}
