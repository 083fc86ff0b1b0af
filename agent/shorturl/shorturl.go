/*
Package shorturl maps short random tokens to long invitation URLs for a
limited time. Invitation URLs carry the whole out-of-band message and are too
long for QR codes; the short form redirects to them.
*/
package shorturl

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/findy-network/campus-agent/agent/sched"
	"github.com/golang/glog"
	"github.com/mr-tron/base58"
)

const (
	// IDLength is the length of the short token.
	IDLength = 6

	DefaultTTL      = time.Minute
	DefaultInterval = 5 * time.Second
)

type mapping struct {
	original  string
	createdAt time.Time
	expiresAt time.Time
}

// Stats tells how many mappings are held and how many of them are still
// resolvable.
type Stats struct {
	TotalMappings  int `json:"totalMappings"`
	ActiveMappings int `json:"activeMappings"`
}

// Shortener holds the mappings. It sweeps expired ones on its own task when
// started.
type Shortener struct {
	lk       sync.Mutex
	mappings map[string]mapping
	ttl      time.Duration
	now      func() time.Time
	sweeper  *sched.Task
}

// New creates a Shortener whose mappings live ttl. The sweeper is not started.
func New(ttl, sweepInterval time.Duration) *Shortener {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultInterval
	}
	s := &Shortener{
		mappings: make(map[string]mapping),
		ttl:      ttl,
		now:      time.Now,
	}
	s.sweeper = sched.New("URL shortener", sweepInterval, func() {
		s.Sweep(s.clock())
	})
	return s
}

// SetClock replaces the time source. Tests only.
func (s *Shortener) SetClock(now func() time.Time) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.now = now
}

func (s *Shortener) clock() time.Time {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.now()
}

// Start starts the expiry sweeper.
func (s *Shortener) Start() { s.sweeper.Start() }

// Stop stops the expiry sweeper.
func (s *Shortener) Stop() { s.sweeper.Stop() }

// Sweeper returns the task which removes expired mappings.
func (s *Shortener) Sweeper() *sched.Task { return s.sweeper }

// Shorten stores original under a new token and returns
// baseURL/prefix/token together with the token.
func (s *Shortener) Shorten(original, baseURL, prefix string) (short, id string) {
	now := s.clock()

	s.lk.Lock()
	for {
		id = newID()
		if _, taken := s.mappings[id]; !taken {
			break
		}
	}
	s.mappings[id] = mapping{
		original:  original,
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.lk.Unlock()

	short = strings.TrimRight(baseURL, "/") + "/" + strings.Trim(prefix, "/") + "/" + id
	glog.V(3).Infoln("short url:", short)
	return short, id
}

// Resolve returns the original url of id. Unknown and expired ids give false,
// and an expired mapping is removed.
func (s *Shortener) Resolve(id string) (string, bool) {
	now := s.clock()

	s.lk.Lock()
	defer s.lk.Unlock()

	m, ok := s.mappings[id]
	if !ok {
		return "", false
	}
	if now.After(m.expiresAt) {
		delete(s.mappings, id)
		return "", false
	}
	return m.original, true
}

// Sweep removes all mappings expired at now and returns how many it removed.
func (s *Shortener) Sweep(now time.Time) int {
	s.lk.Lock()
	defer s.lk.Unlock()

	n := 0
	for id, m := range s.mappings {
		if now.After(m.expiresAt) {
			delete(s.mappings, id)
			n++
		}
	}
	if n > 0 {
		glog.V(3).Infoln("expired short urls removed:", n)
	}
	return n
}

func (s *Shortener) Stats() Stats {
	now := s.clock()

	s.lk.Lock()
	defer s.lk.Unlock()

	st := Stats{TotalMappings: len(s.mappings)}
	for _, m := range s.mappings {
		if !now.After(m.expiresAt) {
			st.ActiveMappings++
		}
	}
	return st
}

func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic("cannot read random bytes")
	}
	s := base58.Encode(b)
	// the first characters of base58 aren't uniform, take the tail
	return s[len(s)-IDLength:]
}
