package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/stretchr/testify/require"
)

func decodeType(t *testing.T, frame []byte) string {
	t.Helper()
	var env struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(frame, &env))
	return env.Type
}

func TestEncodeEvent_WireNames(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		ev   core.Event
		want string
	}{
		{core.UserOnline{UserID: "u", At: now}, wireUserOnline},
		{core.UserOffline{UserID: "u", At: now}, wireUserOffline},
		{core.UserJoinedRoom{UserID: "u", RoomID: "r"}, wireUserJoined},
		{core.UserLeftRoom{UserID: "u", RoomID: "r"}, wireUserLeft},
		{core.MessageReceived{Message: domain.NewMessage("r", "u", "hi", "t")}, wireMessage},
		{core.UserTyping{UserID: "u", RoomID: "r", Typing: true, At: now}, wireTyping},
		{core.MessageRead{UserID: "u", RoomID: "r", MessageID: "m", At: now}, wireMessageRead},
	}

	for _, tc := range cases {
		frame, err := encodeEvent(tc.ev)
		require.NoError(t, err)
		require.Equal(t, tc.want, decodeType(t, frame))
	}
}

func TestEncodeEvent_MessagePayload(t *testing.T) {
	req := require.New(t)
	msg := domain.NewMessage("general", "alice", "hello", "tmp-1")

	frame, err := encodeEvent(core.MessageReceived{Message: msg})
	req.NoError(err)

	var env struct {
		Type string `json:"type"`
		Data struct {
			Message domain.Message `json:"message"`
		} `json:"data"`
	}
	req.NoError(json.Unmarshal(frame, &env))
	req.Equal(wireMessage, env.Type)
	req.Equal(msg.ID, env.Data.Message.ID)
	req.Equal("hello", env.Data.Message.Content)
	req.Equal("tmp-1", env.Data.Message.ClientTempID)
}

func TestConn_TrySendBackpressure(t *testing.T) {
	req := require.New(t)
	c := newConn(nil, 1)
	ev := core.UserOnline{UserID: "u", At: time.Now()}

	req.NoError(c.TrySend(ev))
	req.ErrorIs(c.TrySend(ev), core.ErrBackpressure)
}

func TestConn_TrySendAfterClose(t *testing.T) {
	req := require.New(t)
	c := newConn(nil, 1)
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	req.ErrorIs(c.TrySend(core.UserOnline{UserID: "u"}), core.ErrConnClosed)
}
