// Package gateway is the connection lifecycle handler and routing facade:
// it owns the live sessions, announces presence transitions, and fans
// room-scoped events out to the membership.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avelk/Parley/internal/app"
	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxContentLen = 4000

const (
	stateConnecting int32 = iota
	stateConnected
	stateDisconnected
)

// Session is one live, authenticated connection. Lifecycle is
// connecting -> connected -> disconnected, disconnected being terminal.
type Session struct {
	ID          core.ConnID
	UserID      domain.UserID
	ConnectedAt time.Time

	conn  core.ClientConn
	state atomic.Int32
}

func (s *Session) Connected() bool {
	return s.state.Load() == stateConnected
}

// Gateway multiplexes gateway operations over the shared registry and
// room membership. All collaborators are injected; there is no ambient
// global state.
type Gateway struct {
	registry *app.ConnectionRegistry
	presence *app.PresenceTracker
	rooms    *app.RoomMembership
	resolver core.IdentityResolver
	access   core.RoomPolicy
	policy   app.BackpressurePolicy
	persist  *Persister
	limiter  *app.RateLimiter

	mu       sync.RWMutex
	sessions map[core.ConnID]*Session

	clock func() time.Time
}

func New(
	registry *app.ConnectionRegistry,
	rooms *app.RoomMembership,
	resolver core.IdentityResolver,
	access core.RoomPolicy,
	policy app.BackpressurePolicy,
	persist *Persister,
	limiter *app.RateLimiter,
) *Gateway {
	g := &Gateway{
		registry: registry,
		rooms:    rooms,
		resolver: resolver,
		access:   access,
		policy:   policy,
		persist:  persist,
		limiter:  limiter,
		sessions: make(map[core.ConnID]*Session),
		clock:    time.Now,
	}
	g.presence = app.NewPresenceTracker(registry, g.broadcastAll)
	return g
}

// Connect authenticates the credentials, registers the connection and
// announces presence if this is the user's first live connection. On
// authentication failure nothing is registered and the transport should
// close the connection.
func (g *Gateway) Connect(ctx context.Context, conn core.ClientConn, creds core.Credentials) (*Session, error) {
	user, err := g.resolver.Resolve(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrAuthentication, err)
	}

	sess := &Session{
		ID:          core.ConnID(uuid.NewString()),
		UserID:      user,
		ConnectedAt: g.clock().UTC(),
		conn:        conn,
	}

	g.mu.Lock()
	g.sessions[sess.ID] = sess
	g.mu.Unlock()
	sess.state.Store(stateConnected)

	// The presence sink broadcasts to every session, this one included.
	g.presence.ConnectionOpened(user, sess.ID)
	log.Info().Str("module", "gateway").Str("conn", string(sess.ID)).Str("user", string(user)).Msg("session connected")
	return sess, nil
}

// Disconnect runs the full cleanup regardless of cause: room
// memberships, registry entry, presence announcement, transport close.
// Every step executes even when an earlier one failed; cleanup is
// best-effort and total. Safe to call more than once.
func (g *Gateway) Disconnect(sess *Session, reason string) {
	if sess == nil {
		return
	}
	if !sess.state.CompareAndSwap(stateConnected, stateDisconnected) &&
		!sess.state.CompareAndSwap(stateConnecting, stateDisconnected) {
		return
	}
	log.Info().Str("module", "gateway").Str("conn", string(sess.ID)).Str("user", string(sess.UserID)).Str("reason", reason).Msg("session disconnecting")

	left := g.rooms.LeaveAll(sess.ID)
	for _, room := range left {
		g.fanOut(room, core.UserLeftRoom{UserID: sess.UserID, RoomID: room}, sess.ID)
	}

	if res := g.presence.ConnectionClosed(sess.UserID, sess.ID); res.Last && g.limiter != nil {
		g.limiter.Forget(sess.UserID)
	}

	g.mu.Lock()
	delete(g.sessions, sess.ID)
	g.mu.Unlock()

	sess.conn.Close()
}

// JoinRoom subscribes the session to a room after the access-control
// collaborator allows it, then tells the room's current membership. The
// joiner may receive the notification too; that is harmless.
func (g *Gateway) JoinRoom(ctx context.Context, sess *Session, room domain.RoomID) error {
	if !sess.Connected() {
		return core.ErrInvalidState
	}
	if err := validRoom(room); err != nil {
		return err
	}
	if err := g.access.CanJoin(ctx, sess.UserID, room); err != nil {
		return fmt.Errorf("%w: %w", core.ErrRoomDenied, err)
	}
	g.rooms.Join(sess.ID, room)
	g.fanOut(room, core.UserJoinedRoom{UserID: sess.UserID, RoomID: room}, "")
	return nil
}

// LeaveRoom unsubscribes the session and notifies the remaining members.
func (g *Gateway) LeaveRoom(sess *Session, room domain.RoomID) error {
	if !sess.Connected() {
		return core.ErrInvalidState
	}
	if err := validRoom(room); err != nil {
		return err
	}
	g.rooms.Leave(sess.ID, room)
	g.fanOut(room, core.UserLeftRoom{UserID: sess.UserID, RoomID: room}, "")
	return nil
}

// SendMessage fans the message out to the room, sender included, and
// queues best-effort persistence. The broadcast never waits on the
// store.
func (g *Gateway) SendMessage(sess *Session, room domain.RoomID, content, clientTempID string) (domain.Message, error) {
	if !sess.Connected() {
		return domain.Message{}, core.ErrInvalidState
	}
	if err := validRoom(room); err != nil {
		return domain.Message{}, err
	}
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, fmt.Errorf("%w: empty content", core.ErrValidation)
	}
	if len(content) > maxContentLen {
		return domain.Message{}, fmt.Errorf("%w: content too long", core.ErrValidation)
	}
	if g.limiter != nil && !g.limiter.Allow(sess.UserID) {
		return domain.Message{}, core.ErrRateLimited
	}

	msg := domain.NewMessage(room, sess.UserID, content, clientTempID)
	g.fanOut(room, core.MessageReceived{Message: msg}, "")
	g.persist.EnqueueMessage(msg)
	return msg, nil
}

// SetTyping fans the indicator out to the room, never back to the
// sender's own connection.
func (g *Gateway) SetTyping(sess *Session, room domain.RoomID, typing bool) error {
	if !sess.Connected() {
		return core.ErrInvalidState
	}
	if err := validRoom(room); err != nil {
		return err
	}
	g.fanOut(room, core.UserTyping{
		UserID: sess.UserID,
		RoomID: room,
		Typing: typing,
		At:     g.clock().UTC(),
	}, sess.ID)
	return nil
}

// MarkRead notifies the room (minus the sender) and queues the
// read-position update.
func (g *Gateway) MarkRead(sess *Session, room domain.RoomID, msg domain.MessageID) error {
	if !sess.Connected() {
		return core.ErrInvalidState
	}
	if err := validRoom(room); err != nil {
		return err
	}
	if msg == "" {
		return fmt.Errorf("%w: empty message id", core.ErrValidation)
	}
	g.fanOut(room, core.MessageRead{
		UserID:    sess.UserID,
		RoomID:    room,
		MessageID: msg,
		At:        g.clock().UTC(),
	}, sess.ID)
	g.persist.EnqueueRead(sess.UserID, room, msg)
	return nil
}

// Rooms exposes the membership listing for the HTTP surface.
func (g *Gateway) Rooms() []app.RoomInfo {
	return g.rooms.Rooms()
}

// ConnectionCount is the registry-wide live connection total.
func (g *Gateway) ConnectionCount() int {
	return g.registry.Count()
}

// OnlineUsers is the registry's current online-user snapshot.
func (g *Gateway) OnlineUsers() []domain.UserID {
	return g.registry.OnlineUsers()
}

func (g *Gateway) session(id core.ConnID) (*Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sessions[id]
	return s, ok
}

// fanOut delivers an event to every connection in the room except
// exclude. Delivery is per-recipient best-effort: a failed or slow
// recipient is logged (and possibly kicked), siblings are unaffected.
func (g *Gateway) fanOut(room domain.RoomID, ev core.Event, exclude core.ConnID) {
	for _, id := range g.rooms.MembersOf(room) {
		if id == exclude {
			continue
		}
		sess, ok := g.session(id)
		if !ok {
			continue
		}
		if err := sess.conn.TrySend(ev); err != nil {
			g.onSendFailure(room, sess, err)
		}
	}
}

// broadcastAll is the presence sink: every live session hears about
// online/offline transitions. O(total connections) by design; a known
// single-process scaling limit.
func (g *Gateway) broadcastAll(ev core.Event) {
	g.mu.RLock()
	sessions := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		sessions = append(sessions, s)
	}
	g.mu.RUnlock()

	for _, sess := range sessions {
		if err := sess.conn.TrySend(ev); err != nil {
			g.onSendFailure("", sess, err)
		}
	}
}

func (g *Gateway) onSendFailure(room domain.RoomID, sess *Session, err error) {
	log.Debug().Err(err).Str("module", "gateway").Str("conn", string(sess.ID)).Str("room", string(room)).Msg("delivery failed")
	if errors.Is(err, core.ErrBackpressure) && g.policy != nil {
		if g.policy.OnBackpressure(room, sess.ID) == app.KickSession {
			go g.Disconnect(sess, "backpressure")
		}
	}
}

func validRoom(room domain.RoomID) error {
	if room == "" {
		return fmt.Errorf("%w: empty room id", core.ErrValidation)
	}
	if len(room) > domain.MaxRoomIDLen {
		return fmt.Errorf("%w: room id too long", core.ErrValidation)
	}
	return nil
}
