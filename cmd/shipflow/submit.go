package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/shipflow/internal/app"
	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/headless"
	"github.com/spf13/cobra"
)

var submitFlags struct {
	runOptions
	method  string
	timeout time.Duration
	retries int
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit the configured address without a UI",
	Long: `Submit the prepopulated shipping information from the config without a UI.

The address is validated locally, submitted to the validator and, when a
shipping method is required, the preselected method (or --method) is chosen.`,
	RunE: runSubmit,
}

func init() {
	submitFlags.register(submitCmd)
	submitCmd.Flags().StringVarP(&submitFlags.method, "method", "m", "", "Shipping method ID to choose (default: validator's preselection)")
	submitCmd.Flags().DurationVarP(&submitFlags.timeout, "timeout", "t", 30*time.Second, "Overall deadline, 0=none")
	submitCmd.Flags().IntVar(&submitFlags.retries, "retries", 0, "Saves to retry after an API exception")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	if submitFlags.timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (0 means none)")
	}
	if submitFlags.retries < 0 {
		return fmt.Errorf("retries must be >= 0")
	}

	return withRun(cmd, &submitFlags.runOptions, func(ctx context.Context, a *app.App, cfg flow.Configuration) (flow.Result, error) {
		return headless.Run(ctx, a.Channel(), headless.Options{
			Configuration: cfg,
			MethodID:      submitFlags.method,
			Timeout:       submitFlags.timeout,
			Retries:       submitFlags.retries,
			Recorder:      a.Metrics(),
			Out:           cmd.OutOrStdout(),
		})
	})
}
