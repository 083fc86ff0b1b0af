/*
Package exchange keeps the bookkeeping of exchanges which are waiting for a
peer. A Store holds the role context of every minted invitation until its
connection completes or the entry expires. An Index remembers which completed
connection belongs to which exchange until the exchange's protocol is done.

All operations are atomic. Take and SweepExpired both check and remove under
one lock, so an entry is handed out at most once even when the expiry sweeper
and the event reactor race for it.
*/
package exchange

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// ErrDuplicate is returned when the runtime hands out an exchange id which is
// already pending.
var ErrDuplicate = errors.New("exchange id already pending")

// Exchange is the result of Create.
type Exchange struct {
	ID            string
	InvitationURL string
}

// Entry is a pending exchange. Entries are returned by value and never alias
// the store's memory.
type Entry[C any] struct {
	ID         string
	Context    C
	CreatedAt  time.Time
	DerivedURL string
}

// ExpiresAt returns the time after which the entry is swept with ttl.
func (e Entry[C]) ExpiresAt(ttl time.Duration) time.Time {
	return e.CreatedAt.Add(ttl)
}

// Minter mints out-of-band invitations.
type Minter interface {
	CreateInvitation(ctx context.Context, opts capability.InvitationOptions) (*capability.Invitation, error)
}

// Store maps exchange ids to the role context C.
type Store[C any] struct {
	lk      sync.Mutex
	entries map[string]*Entry[C]
	now     func() time.Time
	opts    capability.InvitationOptions
}

// Option configures a Store.
type Option func(*options)

type options struct {
	now  func() time.Time
	opts capability.InvitationOptions
}

// WithClock sets the time source of the store.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithInvitation sets the options every minted invitation gets.
func WithInvitation(label, domain string) Option {
	return func(o *options) {
		o.opts.Label = label
		o.opts.Domain = domain
	}
}

// NewStore creates an empty store.
func NewStore[C any](opts ...Option) *Store[C] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	o.opts.HandshakeProtocols = []string{capability.HandshakeDIDExchange}
	return &Store[C]{
		entries: make(map[string]*Entry[C]),
		now:     o.now,
		opts:    o.opts,
	}
}

// Create mints a new invitation with m and stores c under the invitation's
// out-of-band record id. If minting fails nothing is stored.
func (s *Store[C]) Create(ctx context.Context, m Minter, c C) (ex Exchange, err error) {
	defer err2.Handle(&err, "create exchange")

	inv := try.To1(m.CreateInvitation(ctx, s.opts))
	try.To(s.Insert(inv.RecordID, c))

	glog.V(1).Infoln("exchange created:", inv.RecordID)
	return Exchange{ID: inv.RecordID, InvitationURL: inv.URL}, nil
}

// Insert stores c under id with the current time.
func (s *Store[C]) Insert(id string, c C) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	if _, exists := s.entries[id]; exists {
		return ErrDuplicate
	}
	s.entries[id] = &Entry[C]{ID: id, Context: c, CreatedAt: s.now()}
	return nil
}

// AttachURL sets the derived (short) url of the entry. It reports false when
// the id is not pending.
func (s *Store[C]) AttachURL(id, url string) bool {
	s.lk.Lock()
	defer s.lk.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.DerivedURL = url
	return true
}

// Take removes and returns the context of id.
func (s *Store[C]) Take(id string) (c C, ok bool) {
	s.lk.Lock()
	defer s.lk.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return c, false
	}
	delete(s.entries, id)
	return e.Context, true
}

// Remove deletes id and reports whether it was pending.
func (s *Store[C]) Remove(id string) bool {
	_, ok := s.Take(id)
	return ok
}

// SweepExpired removes every entry older than ttl at now and returns them.
// An entry exactly ttl old is kept.
func (s *Store[C]) SweepExpired(ttl time.Duration, now time.Time) []Entry[C] {
	s.lk.Lock()
	defer s.lk.Unlock()

	var swept []Entry[C]
	for id, e := range s.entries {
		if now.Sub(e.CreatedAt) > ttl {
			swept = append(swept, *e)
			delete(s.entries, id)
		}
	}
	return swept
}

// Get returns a copy of id's entry.
func (s *Store[C]) Get(id string) (Entry[C], bool) {
	s.lk.Lock()
	defer s.lk.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry[C]{}, false
	}
	return *e, true
}

// List returns copies of all pending entries, oldest first.
func (s *Store[C]) List() []Entry[C] {
	s.lk.Lock()
	list := make([]Entry[C], 0, len(s.entries))
	for _, e := range s.entries {
		list = append(list, *e)
	}
	s.lk.Unlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

func (s *Store[C]) Len() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	return len(s.entries)
}
