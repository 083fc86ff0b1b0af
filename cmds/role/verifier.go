package role

import (
	"context"
	"io"

	"github.com/findy-network/campus-agent/agent/bus"
	"github.com/findy-network/campus-agent/agent/loopback"
	"github.com/findy-network/campus-agent/agent/proofreq"
	"github.com/findy-network/campus-agent/agent/reactor"
	"github.com/findy-network/campus-agent/agent/shorturl"
	"github.com/findy-network/campus-agent/cmds"
	"github.com/findy-network/campus-agent/server"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type VerifierCmd struct {
	Cmd
	CredDefID          string // restriction of requested attributes, none when empty
	SchemaID           string
	ExpectedUniversity string
	EventOrigins       []string
}

func (c VerifierCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err)

	ctx, cancel := signalContext()
	defer cancel()

	s := try.To1(c.Build(ctx, nil))
	cmds.Fprintln(w, "verifier listening on", c.baseURL())
	try.To(s.Run(ctx))
	return nil, nil
}

// Build opens the runtime and builds the verifier.
func (c VerifierCmd) Build(ctx context.Context, net *loopback.Network) (s *Service, err error) {
	var rt *runtime
	defer func() {
		if err != nil && rt != nil {
			rt.close()
		}
	}()
	defer err2.Handle(&err, "build verifier")

	c.printStartupArgs("verifier")
	if c.CredDefID == "" && c.SchemaID == "" {
		glog.Warningln("verifier: no credential restrictions, any issuer is accepted")
	}
	rt = try.To1(c.openRuntime(ctx, net, VerifierLabel))

	events := bus.New[reactor.Verification]()
	notify := reactor.NotifierFunc(func(v reactor.Verification) {
		n := events.Broadcast(v)
		glog.V(1).Infof("%s verification %s sent to %d subscribers", v.Type, v.ProofRecordID, n)
	})
	engine := reactor.New(c.engineConfig("verifier", VerifierLabel), rt.agent,
		reactor.VerifierRole(
			proofreq.Builder{CredDefID: c.CredDefID, SchemaID: c.SchemaID},
			proofreq.Policy{ExpectedUniversity: c.ExpectedUniversity},
			notify,
		))
	urls := shorturl.New(c.URLTTL, c.SweepInterval)

	s = try.To1(newService("verifier", c.Cmd))
	s.srv.Mount(rt.mount...)
	s.srv.Mount((&server.Verifier{
		Engine:       engine,
		URLs:         urls,
		Events:       events,
		EventOrigins: c.EventOrigins,
		BaseURL:      c.baseURL(),
	}).Routes)
	s.tasks = append(s.tasks, urls.Sweeper())
	s.onStart(engine.Start)
	s.onStop(rt.close)
	s.onStop(events.Close)
	s.onStop(engine.Stop)
	return s, nil
}
