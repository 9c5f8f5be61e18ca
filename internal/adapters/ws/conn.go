// Package ws is the websocket transport adapter: it owns the physical
// connections and translates between wire envelopes and gateway events.
package ws

import (
	"sync"

	"github.com/avelk/Parley/internal/core"
	"github.com/gorilla/websocket"
)

// Conn wraps one websocket with a buffered outbound queue. TrySend never
// blocks: a full queue means the frame is dropped for this recipient and
// ErrBackpressure reported, so one stalled client cannot hold up a room
// broadcast.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn, sendBuffer int) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Conn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *Conn) TrySend(ev core.Event) error {
	frame, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return c.trySendFrame(frame)
}

func (c *Conn) trySendFrame(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	c.mu.Unlock()
}

var _ core.ClientConn = (*Conn)(nil)
