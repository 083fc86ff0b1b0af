package role

import (
	"context"
	"fmt"
	"io"

	"github.com/findy-network/campus-agent/agent/bootstrap"
	"github.com/findy-network/campus-agent/agent/loopback"
	"github.com/findy-network/campus-agent/agent/reactor"
	"github.com/findy-network/campus-agent/agent/shorturl"
	"github.com/findy-network/campus-agent/cmds"
	"github.com/findy-network/campus-agent/server"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const (
	IssuerLabel   = "Campus Issuer"
	HolderLabel   = "Campus Holder"
	VerifierLabel = "Campus Verifier"
)

type IssuerCmd struct {
	Cmd
	DIDMethod string
}

func (c IssuerCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if c.DIDMethod == "" {
		return fmt.Errorf("did method cannot be empty")
	}
	return nil
}

func (c IssuerCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err)

	ctx, cancel := signalContext()
	defer cancel()

	s, _ := try.To2(c.Build(ctx, nil))
	cmds.Fprintln(w, "issuer listening on", c.baseURL())
	try.To(s.Run(ctx))
	return nil, nil
}

// Build opens the runtime, bootstraps the ledger and builds the issuer. Any
// bootstrap failure is returned and the issuer doesn't start.
func (c IssuerCmd) Build(ctx context.Context, net *loopback.Network) (s *Service, ids *bootstrap.Identifiers, err error) {
	var rt *runtime
	defer func() {
		if err != nil && rt != nil {
			rt.close()
		}
	}()
	defer err2.Handle(&err, "build issuer")

	c.printStartupArgs("issuer")
	rt = try.To1(c.openRuntime(ctx, net, IssuerLabel))

	ids = try.To1(bootstrap.Run(ctx, rt.agent, bootstrap.DefaultSetup(c.DIDMethod)))
	glog.V(1).Infof("issuer DID %s, schema %s, cred def %s",
		ids.IssuerDID, ids.SchemaID, ids.CredentialDefinitionID)

	engine := reactor.New(c.engineConfig("issuer", IssuerLabel), rt.agent,
		reactor.IssuerRole(func() string { return ids.CredentialDefinitionID }))
	urls := shorturl.New(c.URLTTL, c.SweepInterval)

	s = try.To1(newService("issuer", c.Cmd))
	s.srv.Mount(rt.mount...)
	s.srv.Mount((&server.Issuer{
		Engine:  engine,
		URLs:    urls,
		IDs:     func() *bootstrap.Identifiers { return ids },
		BaseURL: c.baseURL(),
	}).Routes)
	s.tasks = append(s.tasks, urls.Sweeper())
	s.onStart(engine.Start)
	s.onStop(rt.close)
	s.onStop(engine.Stop)
	return s, ids, nil
}
