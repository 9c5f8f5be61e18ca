package gateway

import (
	"context"
	"time"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

type persistJob struct {
	what string
	run  func(ctx context.Context) error
}

// Persister decouples durable storage from the broadcast path. Jobs are
// queued without blocking; a full queue or a terminally failed job is
// logged and dropped. That inconsistency window (delivered but not
// persisted) is the accepted trade-off, not a bug.
type Persister struct {
	store   core.MessageStore
	jobs    chan persistJob
	retries int
	backoff time.Duration
	done    chan struct{}
}

func NewPersister(store core.MessageStore, queueSize, retries int, backoff time.Duration) *Persister {
	if queueSize <= 0 {
		queueSize = 256
	}
	if retries <= 0 {
		retries = 3
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Persister{
		store:   store,
		jobs:    make(chan persistJob, queueSize),
		retries: retries,
		backoff: backoff,
		done:    make(chan struct{}),
	}
}

// Run drains the queue until ctx is canceled. Meant to be started once
// from main as its own goroutine.
func (p *Persister) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.execute(ctx, job)
		}
	}
}

// Wait blocks until Run has returned. Used by graceful shutdown.
func (p *Persister) Wait() {
	<-p.done
}

func (p *Persister) EnqueueMessage(msg domain.Message) {
	p.enqueue(persistJob{
		what: "message " + string(msg.ID),
		run: func(ctx context.Context) error {
			return p.store.Persist(ctx, msg)
		},
	})
}

func (p *Persister) EnqueueRead(user domain.UserID, room domain.RoomID, msg domain.MessageID) {
	p.enqueue(persistJob{
		what: "read position " + string(user) + "/" + string(room),
		run: func(ctx context.Context) error {
			return p.store.UpdateReadPosition(ctx, user, room, msg)
		},
	})
}

func (p *Persister) enqueue(job persistJob) {
	select {
	case p.jobs <- job:
	default:
		log.Warn().Str("module", "gateway.persist").Str("job", job.what).Msg("persist queue full, dropping")
	}
}

func (p *Persister) execute(ctx context.Context, job persistJob) {
	var err error
	for attempt := 1; attempt <= p.retries; attempt++ {
		if err = job.run(ctx); err == nil {
			return
		}
		log.Warn().Err(err).Str("module", "gateway.persist").Str("job", job.what).Int("attempt", attempt).Msg("persist attempt failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.backoff * time.Duration(attempt)):
		}
	}
	log.Error().Err(err).Str("module", "gateway.persist").Str("job", job.what).Msg("persist gave up")
}
