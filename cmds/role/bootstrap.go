package role

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/findy-network/campus-agent/agent/bootstrap"
	"github.com/findy-network/campus-agent/cmds"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// BootstrapCmd finds or registers the issuer DID, the schema and the
// credential definition once and prints them.
type BootstrapCmd struct {
	Cmd
	DIDMethod string
}

type bootstrapResult struct {
	*bootstrap.Identifiers
}

func (r bootstrapResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r.Identifiers, "", "  ")
}

func (c BootstrapCmd) Validate() error {
	if c.Runtime == RuntimeRemote {
		if err := cmds.ValidateURL("runtime url", c.RuntimeURL, true); err != nil {
			return err
		}
	} else if c.Runtime != RuntimeLoopback {
		return fmt.Errorf("runtime must be %s or %s, was %q",
			RuntimeLoopback, RuntimeRemote, c.Runtime)
	}
	if c.DIDMethod == "" {
		return fmt.Errorf("did method cannot be empty")
	}
	return nil
}

func (c BootstrapCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err)

	ctx, cancel := signalContext()
	defer cancel()

	res := try.To1(c.Run(ctx))
	data := try.To1(res.JSON())
	cmds.Fprintln(w, string(data))
	return res, nil
}

// Run runs the bootstrap against the configured runtime.
func (c BootstrapCmd) Run(ctx context.Context) (res cmds.Result, err error) {
	defer err2.Handle(&err, "bootstrap")

	rt := try.To1(c.openRuntime(ctx, nil, IssuerLabel))
	defer rt.close()

	ids := try.To1(bootstrap.Run(ctx, rt.agent, bootstrap.DefaultSetup(c.DIDMethod)))
	return bootstrapResult{ids}, nil
}
