package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/contentplan-backend/internal/app"
	"github.com/yungbote/contentplan-backend/internal/modules/strategy"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "rematerialize <strategy-plan-id>",
		Short: "Re-run weekly validation and materialization for one plan",
		Long: `Validate the plan's weekly distribution again and upsert its content items.

Items are keyed by content_id, so running this twice leaves the same rows behind.

Examples:
  # Materialize a plan whose batches are all merged
  rematerialize 3f1c2a9e-5d7b-4c1e-9a41-0b7e2f6d8c10

  # Generate the missing batches in-process first
  rematerialize 3f1c2a9e-5d7b-4c1e-9a41-0b7e2f6d8c10 --generate`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid strategy plan id: %w", err)
			}
			return run(cmd.Context(), planID, generate)
		},
	}
	cmd.Flags().BoolVarP(&generate, "generate", "g", false, "generate missing batches in-process before materializing")
	return cmd
}

func run(parent context.Context, planID uuid.UUID, generate bool) error {
	a, err := app.New(func(c *app.Config) {
		c.RunServer = false
		c.RunWorker = false
		c.RequireModel = generate
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		return err
	}
	defer a.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res *strategy.MaterializationResult
	if generate {
		res, err = a.Services.Strategy.GenerateInline(ctx, planID)
	} else {
		res, err = a.Services.Strategy.Finalize(ctx, planID)
	}
	if err != nil {
		a.Log.Error("rematerialize failed", "strategy_plan_id", planID, "error", err)
		return err
	}
	a.Log.Info("rematerialize finished",
		"strategy_plan_id", planID,
		"ratio", res.Ratio(),
		"retried", len(res.MissingIDs),
		"dropped", len(res.Dropped),
	)
	fmt.Printf("%s materialized %s\n", planID, res.Ratio())
	return nil
}
