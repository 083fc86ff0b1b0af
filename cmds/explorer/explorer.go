/*
Package explorer has the command which serves the ledger explorer API.
*/
package explorer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/findy-network/campus-agent/cmds"
	"github.com/findy-network/campus-agent/explorer"
	"github.com/findy-network/campus-agent/explorer/rpc"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type Cmd struct {
	Port           uint
	RPCURL         string
	RESTURL        string
	PollInterval   time.Duration
	Rate           float64 // RPC requests per second
	AllowedOrigins []string
}

var DefaultValues = Cmd{
	Port:         3004,
	RPCURL:       "https://rpc.cheqd.network",
	PollInterval: explorer.DefaultPollInterval,
	Rate:         rpc.DefaultRate,
}

func (c Cmd) Validate() error {
	if err := cmds.ValidatePort("port", c.Port); err != nil {
		return err
	}
	if err := cmds.ValidateURL("rpc url", c.RPCURL, true); err != nil {
		return err
	}
	if err := cmds.ValidateURL("rest url", c.RESTURL, false); err != nil {
		return err
	}
	return cmds.ValidateDuration("poll interval", c.PollInterval)
}

// Build creates the stopped indexer and its HTTP handler.
func (c Cmd) Build() (ix *explorer.Indexer, h http.Handler, err error) {
	defer err2.Handle(&err, "build explorer")

	client := rpc.New(c.RPCURL, rpc.WithRate(c.Rate))
	ix = explorer.NewIndexer(client, c.PollInterval)
	h = try.To1(explorer.NewHandler(ix, explorer.HandlerConfig{
		RPCURL:         c.RPCURL,
		RESTURL:        c.RESTURL,
		AllowedOrigins: c.AllowedOrigins,
	}))
	return ix, h, nil
}

func (c Cmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ix, h := try.To2(c.Build())
	ix.Start()
	defer ix.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	glog.V(1).Infof("explorer on port %d reading %s every %v", c.Port, c.RPCURL, c.PollInterval)
	cmds.Fprintf(w, "explorer listening on http://localhost:%d\n", c.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return nil, err
	}
	return nil, nil
}
