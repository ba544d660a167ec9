package cmd

import (
	"fmt"
	"os"

	"github.com/jkrings/larch/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "larch",
		Short: "event-driven in-memory key-value server",
		Long: fmt.Sprintf(`larch (v%s)

An in-memory key-value server in the spirit of Redis: string and
sorted-set values, per-key TTL expiration and connection idle
timeouts, all driven by a single-threaded event loop over a
length-prefixed binary protocol.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of larch",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("larch v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
