package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/findy-network/campus-agent/cmds"
	"github.com/findy-network/campus-agent/cmds/role"
	"github.com/lainio/err2"
	"github.com/spf13/cobra"
)

var versionDoc = `Prints the version of campus-agent, the Go runtime it was built with and
the agent runtimes the roles can use. With --short only the version number is
printed.`

var versionFlags struct {
	short bool
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version and build information of the CLI tool",
	Long:  versionDoc,
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		defer err2.Handle(&err)

		printVersion(cmd.OutOrStdout(), versionFlags.short)
		return nil
	},
}

func printVersion(w io.Writer, short bool) {
	if short {
		cmds.Fprintln(w, utils.Version)
		return
	}
	cmds.Fprintln(w, utils.VersionInfo())
	cmds.Fprintf(w, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	cmds.Fprintf(w, "agent runtimes: %s (default), %s\n", role.RuntimeLoopback, role.RuntimeRemote)
}

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		fmt.Println(err)
	}))

	versionCmd.Flags().BoolVar(&versionFlags.short, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}
