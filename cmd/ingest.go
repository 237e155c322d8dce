package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/statstream/papercrawler/internal/runner"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Runs one ingestion pass over all configured sources",
		Long: `Fetches every configured source once, merges the results into the store
and prints the run summary as JSON. The exit code distinguishes outcomes:
0 when every source succeeded, 2 when some sources failed, 1 when all did.`,
		RunE: runIngestCommand,
	}
}

func runIngestCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	summary := app.runner.Run(ctx, app.cfg.Sources)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	if ctx.Err() != nil && summary.Outcome != runner.OutcomeFull {
		return context.Cause(ctx)
	}
	switch summary.Outcome {
	case runner.OutcomeFull:
		return nil
	case runner.OutcomePartial:
		return &exitError{code: 2, msg: "some sources failed"}
	default:
		return &exitError{code: 1, msg: "all sources failed"}
	}
}
