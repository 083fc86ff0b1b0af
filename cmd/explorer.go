package cmd

import (
	"log"

	"github.com/findy-network/campus-agent/cmds/explorer"
	"github.com/lainio/err2"
	"github.com/spf13/cobra"
)

var explorerEnvs = map[string]string{
	"port":            "PORT",
	"rpc-url":         "RPC_URL",
	"rest-url":        "REST_URL",
	"poll-interval":   "POLL_INTERVAL",
	"rate":            "RATE",
	"allowed-origins": "ALLOWED_ORIGINS",
}

var explorerCmd = &cobra.Command{
	Use:   "explorer",
	Short: "Starts the ledger explorer API",
	Long: `
Starts the explorer. It follows the chain from its RPC endpoint, keeps the
latest blocks and transactions in memory and serves them as JSON.

Example
	campus-agent explorer --rpc-url https://rpc.cheqd.network --poll-interval 6s
	`,
	PreRunE: func(*cobra.Command, []string) error {
		return BindEnvs(explorerEnvs, "explorer")
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, eCmd)
	},
}

var eCmd = explorer.DefaultValues

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	flags := explorerCmd.Flags()
	flags.UintVar(&eCmd.Port, "port", eCmd.Port, flagInfo("HTTP server's port", explorerCmd.Name(), explorerEnvs["port"]))
	flags.StringVar(&eCmd.RPCURL, "rpc-url", eCmd.RPCURL, flagInfo("RPC endpoint of the chain", explorerCmd.Name(), explorerEnvs["rpc-url"]))
	flags.StringVar(&eCmd.RESTURL, "rest-url", "", flagInfo("REST endpoint of the chain, only reported", explorerCmd.Name(), explorerEnvs["rest-url"]))
	flags.DurationVar(&eCmd.PollInterval, "poll-interval", eCmd.PollInterval, flagInfo("how often new blocks are polled", explorerCmd.Name(), explorerEnvs["poll-interval"]))
	flags.Float64Var(&eCmd.Rate, "rate", eCmd.Rate, flagInfo("RPC requests per second", explorerCmd.Name(), explorerEnvs["rate"]))
	flags.StringSliceVar(&eCmd.AllowedOrigins, "allowed-origins", nil, flagInfo("CORS origins, all if not set", explorerCmd.Name(), explorerEnvs["allowed-origins"]))

	rootCmd.AddCommand(explorerCmd)
}
