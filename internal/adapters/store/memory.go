// Package store provides MessageStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
)

// Memory keeps messages and read positions in process memory. Used in
// tests and when no redis address is configured.
type Memory struct {
	mu       sync.RWMutex
	messages map[domain.RoomID][]domain.Message
	reads    map[domain.UserID]map[domain.RoomID]domain.MessageID
}

func NewMemory() *Memory {
	return &Memory{
		messages: make(map[domain.RoomID][]domain.Message),
		reads:    make(map[domain.UserID]map[domain.RoomID]domain.MessageID),
	}
}

func (s *Memory) Persist(_ context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.RoomID] = append(s.messages[msg.RoomID], msg)
	return nil
}

func (s *Memory) UpdateReadPosition(_ context.Context, user domain.UserID, room domain.RoomID, msg domain.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reads[user]; !ok {
		s.reads[user] = make(map[domain.RoomID]domain.MessageID)
	}
	s.reads[user][room] = msg
	return nil
}

// Messages returns a snapshot of a room's stored messages.
func (s *Memory) Messages(room domain.RoomID) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages[room]))
	copy(out, s.messages[room])
	return out
}

// ReadPosition returns the last read message for a user in a room.
func (s *Memory) ReadPosition(user domain.UserID, room domain.RoomID) (domain.MessageID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.reads[user][room]
	return msg, ok
}

var _ core.MessageStore = (*Memory)(nil)
