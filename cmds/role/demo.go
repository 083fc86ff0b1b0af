package role

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/findy-network/campus-agent/agent/loopback"
	"github.com/findy-network/campus-agent/cmds"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// DemoCmd runs the three roles on one loopback network. Each role gets its
// own port, Cmd.Port is ignored.
type DemoCmd struct {
	Cmd
	IssuerPort         uint
	HolderPort         uint
	VerifierPort       uint
	DIDMethod          string
	ExpectedUniversity string
	EventOrigins       []string
}

func (c DemoCmd) Validate() error {
	for name, p := range map[string]uint{
		"issuer port":   c.IssuerPort,
		"holder port":   c.HolderPort,
		"verifier port": c.VerifierPort,
	} {
		if err := cmds.ValidatePort(name, p); err != nil {
			return err
		}
	}
	if c.IssuerPort == c.HolderPort || c.HolderPort == c.VerifierPort ||
		c.IssuerPort == c.VerifierPort {
		return fmt.Errorf("role ports must differ")
	}
	base := c.Cmd
	base.Port = c.IssuerPort
	base.Runtime = RuntimeLoopback
	if err := base.Validate(); err != nil {
		return err
	}
	if c.DIDMethod == "" {
		return fmt.Errorf("did method cannot be empty")
	}
	return nil
}

func (c DemoCmd) role(port uint) Cmd {
	cmd := c.Cmd
	cmd.Port = port
	cmd.Runtime = RuntimeLoopback
	cmd.PublicURL = ""
	cmd.AgentURL = ""
	return cmd
}

// Build builds the three services. The verifier restricts its requests to
// the credential definition the issuer bootstrapped.
func (c DemoCmd) Build(ctx context.Context) (services []*Service, err error) {
	var net *loopback.Network
	defer func() {
		if err == nil {
			return
		}
		for _, s := range services {
			s.Stop()
		}
		services = nil
		if net != nil {
			_ = net.Ledger().Close()
		}
	}()
	defer err2.Handle(&err, "build demo")

	net = try.To1(c.openNetwork())

	issuer, ids := try.To2(IssuerCmd{Cmd: c.role(c.IssuerPort), DIDMethod: c.DIDMethod}.Build(ctx, net))
	services = append(services, issuer)
	services = append(services, try.To1(HolderCmd{Cmd: c.role(c.HolderPort)}.Build(ctx, net)))
	verifier := try.To1(VerifierCmd{
		Cmd:                c.role(c.VerifierPort),
		CredDefID:          ids.CredentialDefinitionID,
		ExpectedUniversity: c.ExpectedUniversity,
		EventOrigins:       c.EventOrigins,
	}.Build(ctx, net))
	verifier.onStop(func() { _ = net.Ledger().Close() })
	services = append(services, verifier)
	return services, nil
}

func (c DemoCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err)

	ctx, cancel := signalContext()
	defer cancel()

	services := try.To1(c.Build(ctx))
	cmds.Fprintf(w, "issuer http://localhost:%d, holder http://localhost:%d, verifier http://localhost:%d\n",
		c.IssuerPort, c.HolderPort, c.VerifierPort)

	var wg sync.WaitGroup
	errs := make(chan error, len(services))
	for _, s := range services {
		wg.Add(1)
		go func(s *Service) {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				glog.Errorf("%s: %v", s.Name, err)
				errs <- fmt.Errorf("%s: %w", s.Name, err)
				cancel()
			}
		}(s)
	}
	wg.Wait()
	close(errs)
	return nil, <-errs
}
