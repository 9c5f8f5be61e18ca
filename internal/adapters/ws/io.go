package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avelk/Parley/internal/app/gateway"
	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "ws").Msg("ping failed")
				return
			}
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("set write deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().Err(err).Str("module", "ws").Msg("write failed")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sess *gateway.Session, c *Conn) {
	defer c.Close()

	if ctl.readLimit > 0 {
		c.ws.SetReadLimit(ctl.readLimit)
	}
	readWait := 2 * ctl.pingPeriod
	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.ws.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "ws").Str("conn", string(sess.ID)).Msg("read closed")
				return
			}
			_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
			ctl.dispatch(ctx, sess, c, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, sess *gateway.Session, c *Conn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(ctx, sess, c, data)
	case "leave":
		ctl.handleLeave(sess, c, data)
	case "message":
		ctl.handleMessage(sess, c, data)
	case "typing":
		ctl.handleTyping(sess, c, data)
	case "read":
		ctl.handleRead(sess, c, data)
	case "ping":
		ctl.sendAck(c, "pong", nil)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown inbound type")
		ctl.sendError(c, "unknown_type")
	}
}

func (ctl *Controller) handleJoin(ctx context.Context, sess *gateway.Session, c *Conn, data []byte) {
	var p struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.gw.JoinRoom(ctx, sess, domain.RoomID(p.Room)); err != nil {
		ctl.sendOpError(c, err)
		return
	}
	ctl.sendAck(c, "joined", map[string]any{"room": p.Room})
}

func (ctl *Controller) handleLeave(sess *gateway.Session, c *Conn, data []byte) {
	var p struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.gw.LeaveRoom(sess, domain.RoomID(p.Room)); err != nil {
		ctl.sendOpError(c, err)
		return
	}
	ctl.sendAck(c, "left", map[string]any{"room": p.Room})
}

func (ctl *Controller) handleMessage(sess *gateway.Session, c *Conn, data []byte) {
	var p struct {
		Room    string `json:"room"`
		Content string `json:"content"`
		TempID  string `json:"temp_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	msg, err := ctl.gw.SendMessage(sess, domain.RoomID(p.Room), p.Content, p.TempID)
	if err != nil {
		ctl.sendOpError(c, err)
		return
	}
	ctl.sendAck(c, "sent", map[string]any{"id": msg.ID, "temp_id": p.TempID})
}

func (ctl *Controller) handleTyping(sess *gateway.Session, c *Conn, data []byte) {
	var p struct {
		Room   string `json:"room"`
		Typing bool   `json:"typing"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.gw.SetTyping(sess, domain.RoomID(p.Room), p.Typing); err != nil {
		ctl.sendOpError(c, err)
	}
}

func (ctl *Controller) handleRead(sess *gateway.Session, c *Conn, data []byte) {
	var p struct {
		Room      string `json:"room"`
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.gw.MarkRead(sess, domain.RoomID(p.Room), domain.MessageID(p.MessageID)); err != nil {
		ctl.sendOpError(c, err)
	}
}

func (ctl *Controller) sendAck(c *Conn, kind string, data map[string]any) {
	frame, err := json.Marshal(envelope{Type: kind, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("encode ack")
		return
	}
	_ = c.trySendFrame(frame)
}

func (ctl *Controller) sendError(c *Conn, code string) {
	frame, err := json.Marshal(envelope{Type: "error", Data: map[string]any{"error": code}})
	if err != nil {
		return
	}
	_ = c.trySendFrame(frame)
}

// sendOpError maps an operation error onto a wire error code. Only
// precondition failures reach the caller; delivery and persistence
// failures never do.
func (ctl *Controller) sendOpError(c *Conn, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		ctl.sendError(c, "invalid_input")
	case errors.Is(err, core.ErrRoomDenied):
		ctl.sendError(c, "room_denied")
	case errors.Is(err, core.ErrInvalidState):
		ctl.sendError(c, "invalid_state")
	case errors.Is(err, core.ErrRateLimited):
		ctl.sendError(c, "rate_limited")
	default:
		ctl.sendError(c, "internal")
	}
}
