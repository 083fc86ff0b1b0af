package role

import (
	"context"
	"io"

	"github.com/findy-network/campus-agent/agent/loopback"
	"github.com/findy-network/campus-agent/agent/reactor"
	"github.com/findy-network/campus-agent/cmds"
	"github.com/findy-network/campus-agent/server"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type HolderCmd struct {
	Cmd
}

func (c HolderCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err)

	ctx, cancel := signalContext()
	defer cancel()

	s := try.To1(c.Build(ctx, nil))
	cmds.Fprintln(w, "holder listening on", c.baseURL())
	try.To(s.Run(ctx))
	return nil, nil
}

// Build opens the runtime and builds the holder.
func (c HolderCmd) Build(ctx context.Context, net *loopback.Network) (s *Service, err error) {
	var rt *runtime
	defer func() {
		if err != nil && rt != nil {
			rt.close()
		}
	}()
	defer err2.Handle(&err, "build holder")

	c.printStartupArgs("holder")
	rt = try.To1(c.openRuntime(ctx, net, HolderLabel))
	engine := reactor.New(c.engineConfig("holder", HolderLabel), rt.agent, reactor.HolderRole())

	s = try.To1(newService("holder", c.Cmd))
	s.srv.Mount(rt.mount...)
	s.srv.Mount((&server.Holder{Engine: engine}).Routes)
	s.onStart(engine.Start)
	s.onStop(rt.close)
	s.onStop(engine.Stop)
	return s, nil
}
