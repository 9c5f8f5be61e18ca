package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Redis stores messages in a capped per-room list and read positions in
// a per-user hash.
type Redis struct {
	rdb  redis.UniversalClient
	keep int64
}

// NewRedis wraps an existing client. keep caps how many messages are
// retained per room; older entries are trimmed away.
func NewRedis(rdb redis.UniversalClient, keep int64) *Redis {
	if keep <= 0 {
		keep = 1000
	}
	return &Redis{rdb: rdb, keep: keep}
}

func roomKey(room domain.RoomID) string { return "room:" + string(room) + ":messages" }
func readKey(user domain.UserID) string { return "read:" + string(user) }

func (s *Redis) Persist(ctx context.Context, msg domain.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	key := roomKey(msg.RoomID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -s.keep, -1)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist message %s: %w", msg.ID, err)
	}
	return nil
}

func (s *Redis) UpdateReadPosition(ctx context.Context, user domain.UserID, room domain.RoomID, msg domain.MessageID) error {
	if err := s.rdb.HSet(ctx, readKey(user), string(room), string(msg)).Err(); err != nil {
		return fmt.Errorf("update read position: %w", err)
	}
	return nil
}

// Recent returns up to n most recent messages of a room, oldest first.
func (s *Redis) Recent(ctx context.Context, room domain.RoomID, n int64) ([]domain.Message, error) {
	raws, err := s.rdb.LRange(ctx, roomKey(room), -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	out := make([]domain.Message, 0, len(raws))
	for _, raw := range raws {
		var msg domain.Message
		if err = json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

var _ core.MessageStore = (*Redis)(nil)
