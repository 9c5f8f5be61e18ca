package app

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddFirstConnection(t *testing.T) {
	req := require.New(t)
	r := NewConnectionRegistry()
	user := domain.UserID(uuid.NewString())
	conn := core.ConnID(uuid.NewString())

	res := r.Add(user, conn)

	req.True(res.Added)
	req.True(res.First)
	req.Equal(1, res.Count)
	req.True(r.HasConnections(user))
	req.Equal([]core.ConnID{conn}, r.ConnectionsOf(user))

	owner, ok := r.UserOf(conn)
	req.True(ok)
	req.Equal(user, owner)
	req.Equal(1, r.Count())
}

func TestRegistry_AddIsIdempotent(t *testing.T) {
	req := require.New(t)
	r := NewConnectionRegistry()
	user := domain.UserID(uuid.NewString())
	conn := core.ConnID(uuid.NewString())

	first := r.Add(user, conn)
	second := r.Add(user, conn)

	req.True(first.Added)
	req.False(second.Added)
	req.False(second.First)
	req.Equal(1, second.Count)
	req.Equal(1, r.Count())
	req.Len(r.ConnectionsOf(user), 1)
}

func TestRegistry_SecondConnectionIsNotFirst(t *testing.T) {
	req := require.New(t)
	r := NewConnectionRegistry()
	user := domain.UserID(uuid.NewString())

	res1 := r.Add(user, core.ConnID(uuid.NewString()))
	res2 := r.Add(user, core.ConnID(uuid.NewString()))

	req.True(res1.First)
	req.False(res2.First)
	req.Equal(2, res2.Count)
	req.Len(r.ConnectionsOf(user), 2)
}

func TestRegistry_EmptyIdentifiersAreNoOps(t *testing.T) {
	req := require.New(t)
	r := NewConnectionRegistry()

	req.Zero(r.Add("", core.ConnID(uuid.NewString())))
	req.Zero(r.Add(domain.UserID(uuid.NewString()), ""))
	req.Zero(r.Remove("", core.ConnID(uuid.NewString())))
	req.Equal(0, r.Count())
	req.Empty(r.OnlineUsers())
}

func TestRegistry_RemoveLastConnection(t *testing.T) {
	req := require.New(t)
	r := NewConnectionRegistry()
	user := domain.UserID(uuid.NewString())
	conn := core.ConnID(uuid.NewString())
	r.Add(user, conn)

	res := r.Remove(user, conn)

	req.True(res.Removed)
	req.True(res.Last)
	req.Equal(0, res.Count)
	req.False(r.HasConnections(user))
	req.Empty(r.OnlineUsers())

	// No empty forward set may be retained.
	_, ok := r.forward[user]
	req.False(ok)
	_, ok = r.UserOf(conn)
	req.False(ok)
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	req := require.New(t)
	r := NewConnectionRegistry()
	user := domain.UserID(uuid.NewString())
	conn := core.ConnID(uuid.NewString())
	r.Add(user, conn)

	first := r.Remove(user, conn)
	second := r.Remove(user, conn)

	req.True(first.Removed)
	req.False(second.Removed)
	req.False(second.Last)
}

func TestRegistry_RemoveOneOfTwoIsNotLast(t *testing.T) {
	req := require.New(t)
	r := NewConnectionRegistry()
	user := domain.UserID(uuid.NewString())
	c1 := core.ConnID(uuid.NewString())
	c2 := core.ConnID(uuid.NewString())
	r.Add(user, c1)
	r.Add(user, c2)

	res := r.Remove(user, c1)

	req.True(res.Removed)
	req.False(res.Last)
	req.Equal(1, res.Count)
	req.True(r.HasConnections(user))
}

func TestRegistry_ConnectionKeepsFirstOwner(t *testing.T) {
	req := require.New(t)
	r := NewConnectionRegistry()
	conn := core.ConnID(uuid.NewString())
	alice := domain.UserID("alice")
	bob := domain.UserID("bob")
	r.Add(alice, conn)

	res := r.Add(bob, conn)

	req.False(res.Added)
	owner, ok := r.UserOf(conn)
	req.True(ok)
	req.Equal(alice, owner)
	req.False(r.HasConnections(bob))
}

// checkConsistent asserts the reverse index's domain equals the union of
// all forward sets.
func checkConsistent(t *testing.T, r *ConnectionRegistry) {
	t.Helper()
	req := require.New(t)
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := 0
	for user, set := range r.forward {
		req.NotEmpty(set, "empty forward set retained for %s", user)
		for conn := range set {
			owner, ok := r.reverse[conn]
			req.True(ok, "forward entry missing from reverse index")
			req.Equal(user, owner)
			seen++
		}
	}
	req.Equal(len(r.reverse), seen)
}

func TestRegistry_IndicesStayConsistentUnderRandomOps(t *testing.T) {
	r := NewConnectionRegistry()
	rng := rand.New(rand.NewSource(1))

	users := make([]domain.UserID, 5)
	conns := make([]core.ConnID, 20)
	for i := range users {
		users[i] = domain.UserID(fmt.Sprintf("user-%d", i))
	}
	for i := range conns {
		conns[i] = core.ConnID(fmt.Sprintf("conn-%d", i))
	}

	for i := 0; i < 2000; i++ {
		user := users[rng.Intn(len(users))]
		conn := conns[rng.Intn(len(conns))]
		if rng.Intn(2) == 0 {
			r.Add(user, conn)
		} else {
			r.Remove(user, conn)
		}
		checkConsistent(t, r)
	}
}

func TestRegistry_ConcurrentAddRemove(t *testing.T) {
	req := require.New(t)
	r := NewConnectionRegistry()
	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			user := domain.UserID(fmt.Sprintf("user-%d", w%4))
			for i := 0; i < perWorker; i++ {
				conn := core.ConnID(fmt.Sprintf("conn-%d-%d", w, i))
				r.Add(user, conn)
				r.Remove(user, conn)
			}
		}(w)
	}
	wg.Wait()

	req.Equal(0, r.Count())
	req.Empty(r.OnlineUsers())
	checkConsistent(t, r)
}
