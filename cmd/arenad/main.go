// File: cmd/arenad/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// arenad runs the arena game server.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "arenad: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *serveFlags) {
	f := new(serveFlags)
	cmd := &cobra.Command{
		Use:   "arenad [port]",
		Short: "Real-time multiplayer arena server",
		Long: `arenad accepts players over TCP, lets them spawn, move and
self-annihilate in a shared 3D space, and broadcasts the authoritative map
every tick. Settings come from an optional YAML file; flags override it.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, args, f)
		},
	}
	f.register(cmd)
	cmd.AddCommand(versionCmd())
	return cmd, f
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "arenad %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
