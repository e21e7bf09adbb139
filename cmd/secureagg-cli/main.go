// Command secureagg-cli drives the secure-aggregation protocol from
// the command line: generating long-term keys, running an aggregator
// or client process against real sockets, and simulating a full round
// in a single process for local testing (spec §6, §8).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	keyDir  string
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "secureagg-cli",
		Short: "CLI tool for the secure-aggregation protocol",
		Long: `A CLI tool for generating long-term keys and running the
five-phase secure-aggregation protocol (spec §4), either as a
standalone aggregator/client process or as an in-process simulation.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&keyDir, "key-dir", "d", "./secureagg-keys", "Directory of long-term keys")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(keygenCmd, serverCmd, clientCmd, simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
