/*
Package reactor drives the exchange protocols of one agent role. An Engine
reads the runtime's state change events in one goroutine and reacts to them
through explicit transition tables: one for connections which is the same for
every role, and the credential and proof tables a Role brings.

Bookkeeping of the pending store and the connection index happens on the event
goroutine. Calls back to the runtime run in their own goroutines, so a slow
runtime call never delays the next event. Their failures are logged and not
retried; the peer sees a stalled protocol.
*/
package reactor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/exchange"
	"github.com/findy-network/campus-agent/agent/sched"
	"github.com/golang/glog"
)

const (
	DefaultTTL           = 60 * time.Second
	DefaultSweepInterval = 5 * time.Second
	DefaultActionTimeout = 30 * time.Second
)

// Config of an Engine. Zero values get defaults.
type Config struct {
	Name          string
	Label         string // label of minted invitations
	Domain        string // base of minted invitation urls
	TTL           time.Duration
	SweepInterval time.Duration
	ActionTimeout time.Duration
	Now           func() time.Time
}

func (c *Config) defaults() {
	if c.Name == "" {
		c.Name = "agent"
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = DefaultActionTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// FollowUp starts the role's own protocol on a freshly completed connection
// of a pending exchange.
type FollowUp[C any] func(ctx context.Context, a capability.Agent, connectionID string, c C) error

// CredentialStep reacts to a credential record entering a state.
type CredentialStep func(ctx context.Context, a capability.Agent, rec capability.CredentialRecord) error

// ProofStep reacts to a proof record entering a state.
type ProofStep func(ctx context.Context, a capability.Agent, rec capability.ProofRecord) error

// Role is the policy of one agent role. States missing from the tables are
// ignored.
type Role[C any] struct {
	Name               string
	AcceptsConnections bool
	FollowUp           FollowUp[C]
	Credential         map[capability.CredentialState]CredentialStep
	Proof              map[capability.ProofState]ProofStep
}

type connectionStep func(rec capability.ConnectionRecord)

// Engine is the exchange reactor of one role with context type C.
type Engine[C any] struct {
	cfg     Config
	agent   capability.Agent
	role    Role[C]
	pending *exchange.Store[C]
	index   *exchange.Index
	sweeper *sched.Task

	connections map[capability.ConnectionState]connectionStep

	lk          sync.Mutex
	unsubscribe func()
	loopDone    chan struct{}

	inflight tracker
}

// New creates a stopped Engine.
func New[C any](cfg Config, agent capability.Agent, role Role[C]) *Engine[C] {
	cfg.defaults()
	e := &Engine[C]{
		cfg:   cfg,
		agent: agent,
		role:  role,
		pending: exchange.NewStore[C](
			exchange.WithClock(cfg.Now),
			exchange.WithInvitation(cfg.Label, cfg.Domain),
		),
		index: exchange.NewIndex(),
	}
	e.inflight.cond = sync.NewCond(&e.inflight.lk)
	e.connections = map[capability.ConnectionState]connectionStep{
		capability.ConnectionRequestReceived: e.connectionRequested,
		capability.ConnectionCompleted:       e.connectionCompleted,
	}
	e.sweeper = sched.New(cfg.Name+" expiry sweeper", cfg.SweepInterval, func() {
		e.Sweep(e.cfg.Now())
	})
	return e
}

// Start subscribes to the runtime's events and starts the expiry sweeper.
// Starting a running engine does nothing.
func (e *Engine[C]) Start() {
	e.lk.Lock()
	defer e.lk.Unlock()

	if e.unsubscribe != nil {
		glog.Warningf("%s reactor already running", e.cfg.Name)
		return
	}
	events, cancel := e.agent.Subscribe()
	e.unsubscribe = cancel
	e.loopDone = make(chan struct{})
	go e.loop(events, e.loopDone)
	e.sweeper.Start()
	glog.V(1).Infof("%s reactor started", e.cfg.Name)
}

func (e *Engine[C]) loop(events <-chan capability.Event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		e.Handle(ev)
	}
}

// Stop stops reading events and the sweeper and waits for the running
// actions. Exchanges in progress at the runtime are not touched.
func (e *Engine[C]) Stop() {
	e.lk.Lock()
	defer e.lk.Unlock()

	if e.unsubscribe == nil {
		return
	}
	e.sweeper.Stop()
	e.unsubscribe()
	<-e.loopDone
	e.unsubscribe = nil
	e.Drain()
	glog.V(1).Infof("%s reactor stopped", e.cfg.Name)
}

// Drain waits until no action is running.
func (e *Engine[C]) Drain() {
	e.inflight.wait()
}

// CreateExchange mints an invitation and keeps c pending until the
// invitation's connection completes or the entry expires.
func (e *Engine[C]) CreateExchange(ctx context.Context, c C) (exchange.Exchange, error) {
	return e.pending.Create(ctx, e.agent, c)
}

// AttachURL records the short url of a pending exchange.
func (e *Engine[C]) AttachURL(id, url string) bool {
	return e.pending.AttachURL(id, url)
}

// Pending lists the pending exchanges.
func (e *Engine[C]) Pending() []exchange.Entry[C] {
	return e.pending.List()
}

// TTL returns the lifetime of pending exchanges.
func (e *Engine[C]) TTL() time.Duration {
	return e.cfg.TTL
}

// Linked returns the number of connections whose protocol isn't done yet.
func (e *Engine[C]) Linked() int {
	return e.index.Len()
}

// Agent returns the runtime the engine drives.
func (e *Engine[C]) Agent() capability.Agent {
	return e.agent
}

// Sweeper returns the expiry sweeper task.
func (e *Engine[C]) Sweeper() *sched.Task {
	return e.sweeper
}

// Sweep drops pending exchanges which have expired at now.
func (e *Engine[C]) Sweep(now time.Time) int {
	swept := e.pending.SweepExpired(e.cfg.TTL, now)
	for _, s := range swept {
		glog.V(1).Infof("%s: pending exchange %s expired", e.cfg.Name, s.ID)
	}
	return len(swept)
}

// Handle processes one event. Start calls it for every event; tests call it
// directly.
func (e *Engine[C]) Handle(ev capability.Event) {
	glog.V(3).Infoln(e.cfg.Name, "event:", ev)

	switch ev.Type {
	case capability.ConnectionStateChanged:
		if ev.Connection == nil {
			return
		}
		step, ok := e.connections[ev.Connection.State]
		if !ok {
			glog.V(3).Infoln(e.cfg.Name, "no connection step for", ev.Connection.State)
			return
		}
		step(*ev.Connection)

	case capability.CredentialStateChanged:
		if ev.Credential == nil {
			return
		}
		rec := *ev.Credential
		if rec.State == capability.CredentialDone {
			e.cleanup(rec.ConnectionID)
		}
		step, ok := e.role.Credential[rec.State]
		if !ok {
			glog.V(3).Infoln(e.cfg.Name, "no credential step for", rec.State)
			return
		}
		e.spawn(fmt.Sprintf("credential %s %s", rec.ID, rec.State), func(ctx context.Context) error {
			return step(ctx, e.agent, rec)
		})

	case capability.ProofStateChanged:
		if ev.Proof == nil {
			return
		}
		rec := *ev.Proof
		if rec.State == capability.ProofDone {
			e.cleanup(rec.ConnectionID)
		}
		step, ok := e.role.Proof[rec.State]
		if !ok {
			glog.V(3).Infoln(e.cfg.Name, "no proof step for", rec.State)
			return
		}
		e.spawn(fmt.Sprintf("proof %s %s", rec.ID, rec.State), func(ctx context.Context) error {
			return step(ctx, e.agent, rec)
		})
	}
}

func (e *Engine[C]) connectionRequested(rec capability.ConnectionRecord) {
	if !e.role.AcceptsConnections {
		return
	}
	e.spawn("accept connection "+rec.ID, func(ctx context.Context) error {
		return e.agent.AcceptConnectionRequest(ctx, rec.ID)
	})
}

func (e *Engine[C]) connectionCompleted(rec capability.ConnectionRecord) {
	exchangeID := rec.OutOfBandID
	c, ok := e.pending.Take(exchangeID)
	if !ok {
		glog.V(3).Infof("%s: connection %s has no pending exchange", e.cfg.Name, rec.ID)
		return
	}
	e.index.Link(rec.ID, exchangeID)
	glog.V(1).Infof("%s: exchange %s continues on connection %s", e.cfg.Name, exchangeID, rec.ID)

	if e.role.FollowUp == nil {
		return
	}
	e.spawn("follow-up "+exchangeID, func(ctx context.Context) error {
		return e.role.FollowUp(ctx, e.agent, rec.ID, c)
	})
}

// cleanup ends the exchange of the connection. The pending entry is removed
// too in case it's still there.
func (e *Engine[C]) cleanup(connectionID string) {
	if connectionID == "" {
		return
	}
	exchangeID, ok := e.index.Unlink(connectionID)
	if !ok {
		return
	}
	if e.pending.Remove(exchangeID) {
		glog.V(1).Infof("%s: stale pending exchange %s removed", e.cfg.Name, exchangeID)
	}
	glog.V(1).Infof("%s: exchange %s done", e.cfg.Name, exchangeID)
}

func (e *Engine[C]) spawn(what string, fn func(ctx context.Context) error) {
	e.inflight.add()
	go func() {
		defer e.inflight.done()
		defer func() {
			if r := recover(); r != nil {
				glog.Errorf("%s: %s panic: %v", e.cfg.Name, what, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ActionTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			glog.Errorf("%s: %s: %v", e.cfg.Name, what, err)
		}
	}()
}

// tracker counts running actions. Unlike sync.WaitGroup it allows new
// actions while someone waits.
type tracker struct {
	lk   sync.Mutex
	cond *sync.Cond
	n    int
}

func (t *tracker) add() {
	t.lk.Lock()
	t.n++
	t.lk.Unlock()
}

func (t *tracker) done() {
	t.lk.Lock()
	t.n--
	if t.n == 0 {
		t.cond.Broadcast()
	}
	t.lk.Unlock()
}

func (t *tracker) wait() {
	t.lk.Lock()
	for t.n > 0 {
		t.cond.Wait()
	}
	t.lk.Unlock()
}
