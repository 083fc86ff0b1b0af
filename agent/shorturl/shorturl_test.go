package shorturl

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	lk  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.lk.Lock()
	defer c.lk.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.now = c.now.Add(d)
}

func TestShortener_ShortenResolve(t *testing.T) {
	clk := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := New(time.Minute, time.Second)
	s.SetClock(clk.Now)

	long := "http://localhost:3001?oob=eyJAdHlwZSI6Imh0dHBzOi8vZGlkY29tbS5vcmcvb3V0LW9mLWJhbmQvMS4xL2ludml0YXRpb24ifQ"
	short, id := s.Shorten(long, "http://localhost:4003/", "/verify/")

	assert.Equal(t, "http://localhost:4003/verify/"+id, short)
	assert.Len(t, id, IDLength)
	_, err := base58.Decode(id)
	assert.NoError(t, err)

	got, ok := s.Resolve(id)
	require.True(t, ok)
	assert.Equal(t, long, got)

	clk.Add(time.Minute)
	_, ok = s.Resolve(id)
	assert.True(t, ok, "exactly at expiry the url still resolves")

	clk.Add(time.Millisecond)
	_, ok = s.Resolve(id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Stats().TotalMappings, "expired mapping is removed on read")

	_, ok = s.Resolve("nope12")
	assert.False(t, ok)
}

func TestShortener_SweepAndStats(t *testing.T) {
	clk := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := New(time.Minute, time.Second)
	s.SetClock(clk.Now)

	s.Shorten("a", "http://x", "invite")
	clk.Add(30 * time.Second)
	s.Shorten("b", "http://x", "invite")
	clk.Add(31 * time.Second)

	assert.Equal(t, Stats{TotalMappings: 2, ActiveMappings: 1}, s.Stats())
	assert.Equal(t, 1, s.Sweep(clk.Now()))
	assert.Equal(t, Stats{TotalMappings: 1, ActiveMappings: 1}, s.Stats())
}

func TestShortener_UniqueIDs(t *testing.T) {
	s := New(0, 0)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		short, id := s.Shorten("u", "http://x", "verify")
		require.False(t, seen[id])
		require.True(t, strings.HasSuffix(short, "/verify/"+id))
		seen[id] = true
	}
	assert.Equal(t, 1000, s.Stats().TotalMappings)
}

func TestShortener_SweeperLifecycle(t *testing.T) {
	s := New(time.Minute, 10*time.Millisecond)
	s.Start()
	assert.True(t, s.Sweeper().IsRunning())
	s.Stop()
	assert.False(t, s.Sweeper().IsRunning())
}
