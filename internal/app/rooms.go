package app

import (
	"sync"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/samber/lo"
)

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// RoomMembership tracks which connections are subscribed to which room's
// broadcast group. No authorization happens here; whether a user may
// join is the access-control collaborator's call.
type RoomMembership struct {
	mu     sync.RWMutex
	byRoom map[domain.RoomID]map[core.ConnID]struct{}
	byConn map[core.ConnID]map[domain.RoomID]struct{}
}

func NewRoomMembership() *RoomMembership {
	return &RoomMembership{
		byRoom: make(map[domain.RoomID]map[core.ConnID]struct{}),
		byConn: make(map[core.ConnID]map[domain.RoomID]struct{}),
	}
}

// Join subscribes a connection to a room. Idempotent.
func (m *RoomMembership) Join(conn core.ConnID, room domain.RoomID) {
	if conn == "" || room == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRoom[room]; !ok {
		m.byRoom[room] = make(map[core.ConnID]struct{})
	}
	m.byRoom[room][conn] = struct{}{}
	if _, ok := m.byConn[conn]; !ok {
		m.byConn[conn] = make(map[domain.RoomID]struct{})
	}
	m.byConn[conn][room] = struct{}{}
}

// Leave unsubscribes a connection from a room. Idempotent. Empty room
// sets are deleted so the map does not leak over time.
func (m *RoomMembership) Leave(conn core.ConnID, room domain.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(conn, room)
}

// LeaveAll removes every membership of a connection and returns the
// rooms it was in. Invoked on disconnect so a destroyed connection never
// leaves dangling room entries.
func (m *RoomMembership) LeaveAll(conn core.ConnID) []domain.RoomID {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := lo.Keys(m.byConn[conn])
	for _, room := range rooms {
		m.leaveLocked(conn, room)
	}
	return rooms
}

func (m *RoomMembership) leaveLocked(conn core.ConnID, room domain.RoomID) {
	if members, ok := m.byRoom[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(m.byRoom, room)
		}
	}
	if rooms, ok := m.byConn[conn]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(m.byConn, conn)
		}
	}
}

// MembersOf returns a snapshot of the room's subscribed connections,
// safe to iterate while others mutate the membership.
func (m *RoomMembership) MembersOf(room domain.RoomID) []core.ConnID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.byRoom[room])
}

// RoomsOf returns a snapshot of the rooms a connection is in.
func (m *RoomMembership) RoomsOf(conn core.ConnID) []domain.RoomID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.byConn[conn])
}

func (m *RoomMembership) Contains(conn core.ConnID, room domain.RoomID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byRoom[room][conn]
	return ok
}

// Rooms lists all rooms with at least one member, for the HTTP API.
func (m *RoomMembership) Rooms() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.byRoom))
	for room, members := range m.byRoom {
		out = append(out, RoomInfo{ID: room, MemberCount: len(members)})
	}
	return out
}
