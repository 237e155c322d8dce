// Package cmd defines and implements the CLI commands for the papercrawler
// executable.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "papercrawler",
		Short: "Ingests newly announced papers from academic statistics journals.",
		Long: `papercrawler tracks the forthcoming-paper listings of a set of academic
journals, normalizes what it finds into canonical paper records and merges
them idempotently into a store. Sources that block scraping fall back to
their syndication feeds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newIngestCmd(), newServeCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		var coded *exitError
		if errors.As(err, &coded) {
			if coded.msg != "" {
				fmt.Fprintln(os.Stderr, coded.msg)
			}
			os.Exit(coded.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
