package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avelk/Parley/internal/domain"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	mu        sync.Mutex
	failFirst int
	persisted []domain.Message
}

func (s *flakyStore) Persist(_ context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFirst > 0 {
		s.failFirst--
		return errors.New("transient failure")
	}
	s.persisted = append(s.persisted, msg)
	return nil
}

func (s *flakyStore) UpdateReadPosition(context.Context, domain.UserID, domain.RoomID, domain.MessageID) error {
	return nil
}

func (s *flakyStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.persisted)
}

func TestPersister_RetriesTransientFailures(t *testing.T) {
	req := require.New(t)
	st := &flakyStore{failFirst: 2}
	p := NewPersister(st, 8, 3, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.EnqueueMessage(domain.NewMessage("r", "alice", "eventually", ""))

	req.Eventually(func() bool { return st.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPersister_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	req := require.New(t)
	st := &flakyStore{}
	p := NewPersister(st, 1, 1, time.Millisecond)
	// Worker not running: the queue holds one job, the rest must be
	// dropped without blocking the caller.

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			p.EnqueueMessage(domain.NewMessage("r", "alice", "burst", ""))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)
	req.Eventually(func() bool { return st.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPersister_StopsOnContextCancel(t *testing.T) {
	p := NewPersister(&flakyStore{}, 8, 1, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("persister did not stop")
	}
}
