package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/lainio/err2/assert"
	"github.com/stretchr/testify/require"
)

type minter struct {
	n    atomic.Int64
	fail error
}

func (m *minter) CreateInvitation(_ context.Context, opts capability.InvitationOptions) (*capability.Invitation, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	id := fmt.Sprintf("oob-%d", m.n.Add(1))
	return &capability.Invitation{RecordID: id, URL: opts.Domain + "?oob=" + id}, nil
}

type clock struct {
	lk  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.lk.Lock()
	defer c.lk.Unlock()
	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestStore_CreateTake(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	s := NewStore[string](WithInvitation("issuer", "http://localhost:3001"))
	ex, err := s.Create(context.Background(), &minter{}, "alice")
	assert.NoError(err)
	assert.Equal(ex.ID, "oob-1")
	assert.Equal(ex.InvitationURL, "http://localhost:3001?oob=oob-1")
	assert.Equal(s.Len(), 1)

	c, ok := s.Take(ex.ID)
	assert.That(ok)
	assert.Equal(c, "alice")

	_, ok = s.Take(ex.ID)
	assert.That(!ok, "second take must miss")
	assert.Equal(s.Len(), 0)
}

func TestStore_CreateFailureStoresNothing(t *testing.T) {
	s := NewStore[string]()
	_, err := s.Create(context.Background(), &minter{fail: errors.New("runtime down")}, "bob")
	require.Error(t, err)
	require.ErrorContains(t, err, "runtime down")
	require.Equal(t, 0, s.Len())
}

func TestStore_Duplicate(t *testing.T) {
	s := NewStore[int]()
	require.NoError(t, s.Insert("x", 1))
	require.ErrorIs(t, s.Insert("x", 2), ErrDuplicate)

	c, ok := s.Take("x")
	require.True(t, ok)
	require.Equal(t, 1, c)
}

func TestStore_AttachURL(t *testing.T) {
	s := NewStore[int]()
	require.NoError(t, s.Insert("x", 1))

	require.True(t, s.AttachURL("x", "http://short/invite/abcdef"))
	require.False(t, s.AttachURL("missing", "whatever"))

	e, ok := s.Get("x")
	require.True(t, ok)
	require.Equal(t, "http://short/invite/abcdef", e.DerivedURL)

	// copies do not alias the store
	e.DerivedURL = "changed"
	e2, _ := s.Get("x")
	require.Equal(t, "http://short/invite/abcdef", e2.DerivedURL)
}

func TestStore_SweepExpiredBoundary(t *testing.T) {
	const ttl = 60 * time.Second
	c := newClock()
	s := NewStore[string](WithClock(c.Now))
	require.NoError(t, s.Insert("a", "alice"))
	created := c.Now()

	tests := []struct {
		name    string
		at      time.Time
		present bool
	}{
		{"before ttl", created.Add(ttl - time.Millisecond), true},
		{"exactly ttl", created.Add(ttl), true},
		{"after ttl", created.Add(ttl + time.Millisecond), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			swept := s.SweepExpired(ttl, tt.at)
			_, ok := s.Get("a")
			require.Equal(t, tt.present, ok)
			if !tt.present {
				require.Len(t, swept, 1)
				require.Equal(t, "alice", swept[0].Context)
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	c := newClock()
	s := NewStore[int](WithClock(c.Now))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Insert(fmt.Sprint("id", i), i))
		c.Add(time.Second)
	}
	list := s.List()
	require.Len(t, list, 3)
	for i, e := range list {
		require.Equal(t, i, e.Context)
	}
	require.Equal(t, list[0].CreatedAt.Add(time.Minute), list[0].ExpiresAt(time.Minute))
}

func TestStore_ConcurrentTake(t *testing.T) {
	const workers = 16
	s := NewStore[int]()
	require.NoError(t, s.Insert("only", 42))

	var got atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(sweeper bool) {
			defer wg.Done()
			if sweeper {
				got.Add(int32(len(s.SweepExpired(-time.Second, time.Now()))))
				return
			}
			if _, ok := s.Take("only"); ok {
				got.Add(1)
			}
		}(i%2 == 0)
	}
	wg.Wait()
	require.Equal(t, int32(1), got.Load())
}

func TestStore_ConcurrentCreateDistinct(t *testing.T) {
	const workers = 32
	s := NewStore[int]()
	m := &minter{}

	var wg sync.WaitGroup
	ids := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ex, err := s.Create(context.Background(), m, i)
			if err == nil {
				ids <- ex.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id])
		seen[id] = true
	}
	require.Len(t, seen, workers)
	require.Equal(t, workers, s.Len())
}

func TestIndex(t *testing.T) {
	x := NewIndex()
	x.Link("conn1", "ex1")
	x.Link("conn1", "ex2")
	require.Equal(t, 1, x.Len())

	id, ok := x.Lookup("conn1")
	require.True(t, ok)
	require.Equal(t, "ex2", id)

	id, ok = x.Unlink("conn1")
	require.True(t, ok)
	require.Equal(t, "ex2", id)

	_, ok = x.Unlink("conn1")
	require.False(t, ok)
}
