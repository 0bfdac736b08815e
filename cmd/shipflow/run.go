package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/shipflow/internal/app"
	"github.com/mark3labs/shipflow/internal/config"
	ierr "github.com/mark3labs/shipflow/internal/errors"
	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/hooks"
	"github.com/mark3labs/shipflow/internal/logger"
	"github.com/mark3labs/shipflow/internal/tui"
	"github.com/mark3labs/shipflow/internal/validator"
	"github.com/spf13/cobra"
)

// runOptions are the flags shared by run and submit.
type runOptions struct {
	name        string
	metricsAddr string
	noValidator bool
}

func (o *runOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.name, "name", "n", "", "Run name (default: from config or generated)")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	cmd.Flags().BoolVar(&o.noValidator, "no-validator", false, "Do not start the built-in validator")
}

var runFlags runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive shipping wizard",
	Long: `Run the shipping wizard for one checkout.

The run command starts an embedded NATS server carrying the run's event
channel, starts the built-in validator (unless --no-validator) and presents
the wizard. The confirmed address and shipping method are printed on exit.`,
	RunE: runRun,
}

func init() {
	runFlags.register(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	return withRun(cmd, &runFlags, func(ctx context.Context, a *app.App, cfg flow.Configuration) (flow.Result, error) {
		dialog := tui.NewDialog(nil)
		ctrl := a.NewController(dialog, nil)
		if err := ctrl.Start(cfg); err != nil {
			return flow.Result{}, fmt.Errorf("failed to start flow: %w", err)
		}
		defer func() { _ = ctrl.Close() }()

		return tui.RunWizard(ctx, ctrl, dialog)
	})
}

// withRun loads config, starts the app and hands the run to drive. The
// result is printed as a rendered summary.
func withRun(cmd *cobra.Command, opts *runOptions, drive func(context.Context, *app.App, flow.Configuration) (flow.Result, error)) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	opts.apply(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	flowCfg, err := cfg.FlowConfiguration()
	if err != nil {
		return err
	}

	a := app.New(appConfig(cfg, opts.noValidator))
	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	// Ensure cleanup always runs using defer
	defer func() {
		reportShutdown(cmd.ErrOrStderr(), a.Stop())
	}()

	if addr := a.MetricsAddr(); addr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Metrics on http://%s/metrics\n", addr)
	}

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := drive(ctx, a, flowCfg)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, tui.ErrInterrupted) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Interrupted")
			return nil
		}
		return err
	}

	printSummary(cmd.OutOrStdout(), res)
	return runCompletionHooks(ctx, cmd.OutOrStdout(), a.Channel().Run(), res)
}

// runCompletionHooks runs the on_complete hooks from the working directory.
func runCompletionHooks(ctx context.Context, w io.Writer, run string, res flow.Result) error {
	cfg, err := hooks.LoadConfig(".")
	if err != nil {
		return err
	}
	if cfg == nil || len(cfg.Hooks.OnComplete) == 0 {
		return nil
	}

	vars, err := hooks.VariablesFor(run, res)
	if err != nil {
		return err
	}
	output, err := hooks.ExecuteAllPiped(ctx, cfg.Hooks.OnComplete, ".", vars)
	if err != nil {
		return fmt.Errorf("on_complete hooks: %w", err)
	}
	if output != "" {
		fmt.Fprint(w, output)
	}
	return nil
}

// reportShutdown prints shutdown failures. Transient ones, such as a worker
// that outlived its stop timeout, are only logged.
func reportShutdown(w io.Writer, err error) {
	if err == nil {
		return
	}
	if ierr.IsTransient(err) {
		logger.Warn("Shutdown incomplete: %v", err)
		return
	}
	fmt.Fprintf(w, "Error during shutdown: %v\n", err)
}

func printSummary(w io.Writer, res flow.Result) {
	fmt.Fprintln(w, tui.RenderSummary(res, 80))
}

// apply overrides config values with flags the user set.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("name") {
		cfg.RunName = o.name
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
}

func appConfig(cfg *config.Config, noValidator bool) app.Config {
	return app.Config{
		RunName:     cfg.RunName,
		MetricsAddr: cfg.MetricsAddr,
		NoValidator: noValidator,
		Validator: validator.Config{
			AllowedCountries: cfg.Validator.AllowedCountries,
			ShippingMethods:  cfg.Validator.ShippingMethods,
			Delay:            cfg.Validator.Delay,
			FailMessage:      cfg.Validator.FailMessage,
			FailStatus:       cfg.Validator.FailStatus,
		},
	}
}
