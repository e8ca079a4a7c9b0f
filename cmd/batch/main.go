package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"video-insights-go/internal/aggregator"
	"video-insights-go/internal/config"
	"video-insights-go/internal/dataset"
	"video-insights-go/internal/logger"
	"video-insights-go/internal/pipeline"
	"video-insights-go/internal/processor"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type options struct {
	input  string
	output string
	limit  int
}

func newRootCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "batch",
		Short:         "Run the video insights pipeline over a spreadsheet of URLs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "xlsx workbook with a URL column")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "report.xlsx", "where to write the report")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "process at most this many rows (0 = all)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	cfg := config.Load()
	log := logger.NewWith(cfg.Environment, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	reqs, err := dataset.Load(opts.input)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.input, err)
	}
	if opts.limit > 0 && len(reqs) > opts.limit {
		reqs = reqs[:opts.limit]
	}
	log.WithField("rows", len(reqs)).WithField("input", opts.input).Info("batch loaded")

	orch := pipeline.FromConfig(cfg, log.Entry)
	res, runErr := processor.ProcessAll(ctx, orch, reqs, log.WithField("component", "batch"))

	insight := aggregator.Aggregate(res.Items, res.Errors)
	if err := dataset.WriteReport(opts.output, res.Items, insight); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d/%d succeeded, %d analyzed, report written to %s\n",
		insight.Succeeded, insight.Total, insight.Analyzed, opts.output)
	return runErr
}
