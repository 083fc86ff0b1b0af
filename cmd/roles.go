package cmd

import (
	"log"

	"github.com/findy-network/campus-agent/cmds/role"
	"github.com/findy-network/campus-agent/completionhelp"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// roleEnvs are the flags every role command has. The env names are the same
// for all of them, e.g. CAMPUS_PORT, so one environment configures the role
// a container runs.
var roleEnvs = map[string]string{
	"port":              "PORT",
	"public-url":        "PUBLIC_URL",
	"invitation-domain": "INVITATION_DOMAIN",
	"agent-url":         "AGENT_URL",
	"runtime":           "RUNTIME",
	"runtime-url":       "RUNTIME_URL",
	"webhook-url":       "WEBHOOK_URL",
	"exchange-ttl":      "EXCHANGE_TTL",
	"sweep-interval":    "SWEEP_INTERVAL",
	"url-ttl":           "URL_TTL",
	"ready-timeout":     "READY_TIMEOUT",
	"ledger-db":         "LEDGER_DB",
	"allowed-origins":   "ALLOWED_ORIGINS",
}

func roleFlags(flags *pflag.FlagSet, c *role.Cmd, port uint) {
	*c = role.DefaultValues
	flags.UintVar(&c.Port, "port", port, flagInfo("HTTP server's port", "", roleEnvs["port"]))
	flags.StringVar(&c.PublicURL, "public-url", "", flagInfo("public base url of short links, http://localhost:<port> if not set", "", roleEnvs["public-url"]))
	flags.StringVar(&c.InvitationDomain, "invitation-domain", "", flagInfo("base url of out-of-band invitations", "", roleEnvs["invitation-domain"]))
	flags.StringVar(&c.AgentURL, "agent-url", "", flagInfo("inbound transport of the agent runtime, unmatched requests are forwarded to it", "", roleEnvs["agent-url"]))
	flags.StringVar(&c.Runtime, "runtime", c.Runtime, flagInfo("agent runtime: loopback or remote", "", roleEnvs["runtime"]))
	flags.StringVar(&c.RuntimeURL, "runtime-url", "", flagInfo("admin API of a remote runtime", "", roleEnvs["runtime-url"]))
	flags.StringVar(&c.WebhookURL, "webhook-url", "", flagInfo("url the remote runtime posts its events to", "", roleEnvs["webhook-url"]))
	flags.DurationVar(&c.ExchangeTTL, "exchange-ttl", c.ExchangeTTL, flagInfo("lifetime of a pending exchange", "", roleEnvs["exchange-ttl"]))
	flags.DurationVar(&c.SweepInterval, "sweep-interval", c.SweepInterval, flagInfo("interval of the expiry sweeps", "", roleEnvs["sweep-interval"]))
	flags.DurationVar(&c.URLTTL, "url-ttl", c.URLTTL, flagInfo("lifetime of a short url", "", roleEnvs["url-ttl"]))
	flags.DurationVar(&c.ReadyTimeout, "ready-timeout", c.ReadyTimeout, flagInfo("how long to wait for a remote runtime at startup", "", roleEnvs["ready-timeout"]))
	flags.StringVar(&c.LedgerDB, "ledger-db", "", flagInfo("bolt file of the loopback ledger, in memory if not set", "", roleEnvs["ledger-db"]))
	flags.StringSliceVar(&c.AllowedOrigins, "allowed-origins", nil, flagInfo("CORS origins, all if not set", "", roleEnvs["allowed-origins"]))
}

func merge(envs ...map[string]string) map[string]string {
	m := make(map[string]string)
	for _, e := range envs {
		for k, v := range e {
			m[k] = v
		}
	}
	return m
}

var issuerEnvs = merge(roleEnvs, map[string]string{
	"did-method": "DID_METHOD",
})

var issuerCmd = &cobra.Command{
	Use:   "issuer",
	Short: "Starts the credential issuer",
	Long: `
Starts the issuer. It bootstraps its DID, the student identity schema and the
credential definition, and then offers a credential to every wallet which
connects with an invitation of POST /credentials/issue.

Example
	campus-agent issuer --port 3001 --did-method cheqd
	`,
	PreRunE: func(*cobra.Command, []string) error {
		return BindEnvs(issuerEnvs, "")
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, iCmd)
	},
}

var holderCmd = &cobra.Command{
	Use:   "holder",
	Short: "Starts the holder wallet",
	Long: `
Starts the holder. It accepts every credential offer and answers every proof
request with the credentials it has.

Example
	campus-agent holder --port 3002
	`,
	PreRunE: func(*cobra.Command, []string) error {
		return BindEnvs(roleEnvs, "")
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, hCmd)
	},
}

var verifierEnvs = merge(roleEnvs, map[string]string{
	"cred-def-id":         "CRED_DEF_ID",
	"schema-id":           "SCHEMA_ID",
	"expected-university": "EXPECTED_UNIVERSITY",
	"events-origin":       "EVENTS_ORIGIN",
})

var verifierCmd = &cobra.Command{
	Use:   "verifier",
	Short: "Starts the verifier",
	Long: `
Starts the verifier. Successful verifications are streamed from /events as
server-sent events and from /events/ws over a websocket.

Example
	campus-agent verifier --port 3003 \
		--cred-def-id did:cheqd:testnet:.../resources/... \
		--events-origin localhost:5003
	`,
	PreRunE: func(*cobra.Command, []string) error {
		return BindEnvs(verifierEnvs, "")
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, vCmd)
	},
}

var demoEnvs = merge(roleEnvs, map[string]string{
	"issuer-port":         "ISSUER_PORT",
	"holder-port":         "HOLDER_PORT",
	"verifier-port":       "VERIFIER_PORT",
	"did-method":          "DID_METHOD",
	"expected-university": "EXPECTED_UNIVERSITY",
	"events-origin":       "EVENTS_ORIGIN",
})

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Starts all three roles on a loopback runtime",
	Long: `
Starts the issuer, the holder and the verifier in one process. The agents talk
to each other in memory, nothing is written to a real ledger.

Example
	campus-agent demo --ledger-db campus.bolt
	`,
	PreRunE: func(*cobra.Command, []string) error {
		return BindEnvs(demoEnvs, "")
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, dCmd)
	},
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Registers the issuer DID, schema and credential definition",
	Long: `
Finds or registers the issuer DID, the student identity schema and its
credential definition, and prints their ids. Running it again registers
nothing new.

Example
	campus-agent bootstrap --runtime remote --runtime-url http://localhost:3021
	`,
	PreRunE: func(*cobra.Command, []string) error {
		return BindEnvs(issuerEnvs, "")
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, bCmd)
	},
}

var (
	iCmd role.IssuerCmd
	hCmd role.HolderCmd
	vCmd role.VerifierCmd
	dCmd role.DemoCmd
	bCmd role.BootstrapCmd
)

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	flags := issuerCmd.Flags()
	roleFlags(flags, &iCmd.Cmd, 3001)
	flags.StringVar(&iCmd.DIDMethod, "did-method", "cheqd", flagInfo("method of the issuer DID", "", issuerEnvs["did-method"]))

	roleFlags(holderCmd.Flags(), &hCmd.Cmd, 3002)

	flags = verifierCmd.Flags()
	roleFlags(flags, &vCmd.Cmd, 3003)
	flags.StringVar(&vCmd.CredDefID, "cred-def-id", "", flagInfo("credential definition the requested attributes must come from", "", verifierEnvs["cred-def-id"]))
	flags.StringVar(&vCmd.SchemaID, "schema-id", "", flagInfo("schema the requested attributes must come from", "", verifierEnvs["schema-id"]))
	flags.StringVar(&vCmd.ExpectedUniversity, "expected-university", "", flagInfo("only this university passes a student verification, any if not set", "", verifierEnvs["expected-university"]))
	flags.StringSliceVar(&vCmd.EventOrigins, "events-origin", nil, flagInfo("origins allowed to the event streams, all if not set", "", verifierEnvs["events-origin"]))

	flags = demoCmd.Flags()
	roleFlags(flags, &dCmd.Cmd, 3001)
	flags.UintVar(&dCmd.IssuerPort, "issuer-port", 3001, flagInfo("issuer's port", "", demoEnvs["issuer-port"]))
	flags.UintVar(&dCmd.HolderPort, "holder-port", 3002, flagInfo("holder's port", "", demoEnvs["holder-port"]))
	flags.UintVar(&dCmd.VerifierPort, "verifier-port", 3003, flagInfo("verifier's port", "", demoEnvs["verifier-port"]))
	flags.StringVar(&dCmd.DIDMethod, "did-method", "cheqd", flagInfo("method of the issuer DID", "", demoEnvs["did-method"]))
	flags.StringVar(&dCmd.ExpectedUniversity, "expected-university", "", flagInfo("only this university passes a student verification", "", demoEnvs["expected-university"]))
	flags.StringSliceVar(&dCmd.EventOrigins, "events-origin", nil, flagInfo("origins allowed to the event streams", "", demoEnvs["events-origin"]))

	flags = bootstrapCmd.Flags()
	roleFlags(flags, &bCmd.Cmd, 3001)
	flags.StringVar(&bCmd.DIDMethod, "did-method", "cheqd", flagInfo("method of the issuer DID", "", issuerEnvs["did-method"]))

	for _, c := range []*cobra.Command{issuerCmd, holderCmd, verifierCmd, demoCmd, bootstrapCmd} {
		try.To(c.RegisterFlagCompletionFunc("ledger-db", ledgerCompletion))
		rootCmd.AddCommand(c)
	}
}

func ledgerCompletion(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completionhelp.LedgerFiles(".", toComplete), cobra.ShellCompDirectiveDefault
}
