/*
Package role has the commands which start the campus agents: issuer, holder
and verifier each alone, all of them in one process for a demo, and the
ledger bootstrap.
*/
package role

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/loopback"
	"github.com/findy-network/campus-agent/agent/reactor"
	"github.com/findy-network/campus-agent/agent/remote"
	"github.com/findy-network/campus-agent/agent/sched"
	"github.com/findy-network/campus-agent/agent/shorturl"
	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/findy-network/campus-agent/cmds"
	"github.com/findy-network/campus-agent/server"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Runtimes of the agents.
const (
	RuntimeLoopback = "loopback"
	RuntimeRemote   = "remote"
)

const DefaultReadyTimeout = 30 * time.Second

// Cmd holds the settings every role shares.
type Cmd struct {
	Port             uint
	PublicURL        string // base of short urls, built from the port when empty
	InvitationDomain string
	AgentURL         string // inbound transport of the runtime
	Runtime          string
	RuntimeURL       string // admin API of a remote runtime
	WebhookURL       string // where the remote runtime posts its events
	ExchangeTTL      time.Duration
	SweepInterval    time.Duration
	URLTTL           time.Duration
	ReadyTimeout     time.Duration
	LedgerDB         string // bolt file of the loopback ledger, memory when empty
	AllowedOrigins   []string
}

// DefaultValues of a role.
var DefaultValues = Cmd{
	Runtime:       RuntimeLoopback,
	ExchangeTTL:   reactor.DefaultTTL,
	SweepInterval: reactor.DefaultSweepInterval,
	URLTTL:        shorturl.DefaultTTL,
	ReadyTimeout:  DefaultReadyTimeout,
}

func (c Cmd) Validate() error {
	if err := cmds.ValidatePort("port", c.Port); err != nil {
		return err
	}
	if err := cmds.ValidateURL("public url", c.PublicURL, false); err != nil {
		return err
	}
	if err := cmds.ValidateURL("agent url", c.AgentURL, false); err != nil {
		return err
	}
	switch c.Runtime {
	case RuntimeLoopback:
	case RuntimeRemote:
		if err := cmds.ValidateURL("runtime url", c.RuntimeURL, true); err != nil {
			return err
		}
		if err := cmds.ValidateURL("webhook url", c.WebhookURL, false); err != nil {
			return err
		}
	default:
		return fmt.Errorf("runtime must be %s or %s, was %q",
			RuntimeLoopback, RuntimeRemote, c.Runtime)
	}
	if err := cmds.ValidateDuration("exchange ttl", c.ExchangeTTL); err != nil {
		return err
	}
	if err := cmds.ValidateDuration("sweep interval", c.SweepInterval); err != nil {
		return err
	}
	return cmds.ValidateDuration("url ttl", c.URLTTL)
}

// baseURL is the public url of the role, localhost and port when not given.
func (c Cmd) baseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

func (c Cmd) engineConfig(name, label string) reactor.Config {
	return reactor.Config{
		Name:          name,
		Label:         label,
		Domain:        c.InvitationDomain,
		TTL:           c.ExchangeTTL,
		SweepInterval: c.SweepInterval,
	}
}

func (c Cmd) printStartupArgs(name string) {
	if !glog.V(1) {
		return
	}
	glog.Infof("%s: port %d, public url %s, runtime %s %s",
		name, c.Port, c.baseURL(), c.Runtime, c.RuntimeURL)
	glog.Infof("%s: exchange ttl %v, sweep %v, url ttl %v",
		name, c.ExchangeTTL, c.SweepInterval, c.URLTTL)
	if c.Runtime == RuntimeRemote {
		hook := c.WebhookURL
		if hook == "" {
			hook = c.baseURL() + "/webhooks"
		}
		glog.Infof("%s: runtime webhooks expected at %s", name, hook)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runtime is an opened agent runtime of one role.
type runtime struct {
	agent capability.Agent
	mount []func(r *mux.Router)
	close func()
}

// openRuntime opens the role's runtime. A loopback agent joins net, which is
// opened from LedgerDB when nil.
func (c Cmd) openRuntime(ctx context.Context, net *loopback.Network, label string) (rt *runtime, err error) {
	defer err2.Handle(&err, "open %s runtime", c.Runtime)

	if c.Runtime == RuntimeRemote {
		cl := remote.New(c.RuntimeURL, remote.WithHTTPClient(
			&http.Client{Timeout: utils.Settings.Timeout()}))
		try.To(cl.WaitReady(ctx, c.ReadyTimeout))
		return &runtime{
			agent: cl,
			mount: []func(r *mux.Router){cl.RegisterWebhooks},
			close: func() { _ = cl.Close() },
		}, nil
	}

	closeNet := func() {}
	if net == nil {
		net = try.To1(c.openNetwork())
		closeNet = func() { _ = net.Ledger().Close() }
	}
	a := try.To1(net.NewAgent(label))
	return &runtime{
		agent: a,
		close: func() {
			_ = a.Close()
			closeNet()
		},
	}, nil
}

func (c Cmd) openNetwork() (*loopback.Network, error) {
	if c.LedgerDB == "" {
		return loopback.NewNetwork(nil), nil
	}
	l, err := loopback.OpenLedger(c.LedgerDB)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infoln("loopback ledger:", c.LedgerDB)
	return loopback.NewNetwork(l), nil
}

// Service is a built role: its server, the tasks and engines to start with
// it, and what to close after.
type Service struct {
	Name string

	srv    *server.Server
	tasks  []*sched.Task
	starts []func()
	stops  []func()
}

func newService(name string, c Cmd) (*Service, error) {
	srv, err := server.New(server.Config{
		Port:           c.Port,
		AgentURL:       c.AgentURL,
		AllowedOrigins: c.AllowedOrigins,
	})
	if err != nil {
		return nil, err
	}
	return &Service{Name: name, srv: srv}, nil
}

func (s *Service) onStart(fn func()) { s.starts = append(s.starts, fn) }

// onStop functions run in reverse order.
func (s *Service) onStop(fn func()) { s.stops = append(s.stops, fn) }

// Handler is the HTTP handler of the service.
func (s *Service) Handler() http.Handler {
	return s.srv.Handler()
}

// Start starts the engines and tasks but not the HTTP server.
func (s *Service) Start() {
	for _, fn := range s.starts {
		fn()
	}
	for _, t := range s.tasks {
		t.Start()
	}
}

// Stop stops what Start started and closes the runtime.
func (s *Service) Stop() {
	for _, t := range s.tasks {
		t.Stop()
	}
	for i := len(s.stops) - 1; i >= 0; i-- {
		s.stops[i]()
	}
	glog.V(1).Infoln(s.Name, "stopped")
}

// Run starts the service and serves HTTP until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.Start()
	defer s.Stop()

	glog.V(1).Infoln(s.Name, "started")
	err := s.srv.ListenAndServe(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
