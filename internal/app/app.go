// Package app wires the pieces a wizard run needs: the embedded NATS server
// carrying its event channel, the demo validator answering submissions and
// the optional metrics endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/shipflow/internal/bus"
	ierr "github.com/mark3labs/shipflow/internal/errors"
	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/logger"
	"github.com/mark3labs/shipflow/internal/metrics"
	"github.com/mark3labs/shipflow/internal/validator"
	natsserver "github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
)

// Config holds configuration for the app.
type Config struct {
	RunName     string           // Human-readable run name, slugged into the run ID
	MetricsAddr string           // Listen address for /metrics (empty disables)
	NoValidator bool             // Do not start the built-in validator
	Validator   validator.Config // Answers given by the built-in validator
}

// App owns the infrastructure of one wizard run.
type App struct {
	cfg       Config
	ns        *natsserver.Server
	nc        *natsgo.Conn
	channel   *bus.Channel
	collector *metrics.Collector
	metrics   *http.Server
	metricsLn net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	started   bool
	stopped   bool
}

// New creates an App. Call Start before using it.
func New(cfg Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:       cfg,
		collector: metrics.NewCollector(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start brings up NATS, the validator and the metrics endpoint. On failure
// everything already started is torn down.
func (a *App) Start() error {
	if a.started {
		return errors.New("app already started")
	}
	a.started = true

	run := bus.RunID(a.cfg.RunName)
	logger.Info("Starting run '%s'", run)

	ns, err := bus.StartEmbedded()
	if err != nil {
		return fmt.Errorf("failed to start NATS: %w", err)
	}
	a.ns = ns

	nc, err := bus.ConnectInProcess(ns)
	if err != nil {
		ns.Shutdown()
		a.ns = nil
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.nc = nc
	a.channel = bus.NewChannel(nc, run)

	if !a.cfg.NoValidator {
		if err := a.startValidator(); err != nil {
			_ = a.Stop()
			return err
		}
	}

	if a.cfg.MetricsAddr != "" {
		if err := a.startMetrics(); err != nil {
			_ = a.Stop()
			return err
		}
	}

	logger.Info("Run '%s' started", run)
	return nil
}

func (a *App) startValidator() error {
	v := validator.New(a.channel, a.cfg.Validator, a.collector)
	sub, err := v.Listen()
	if err != nil {
		return fmt.Errorf("failed to start validator: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := ierr.Recover(func() error {
			return v.Serve(a.ctx, sub)
		})
		if err != nil {
			logger.Error("Validator stopped: %v", err)
		}
	}()
	return nil
}

func (a *App) startMetrics() error {
	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.MetricsAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.collector.Handler())
	a.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.metricsLn = ln

	srv := a.metrics
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()

	logger.Info("Serving metrics on %s/metrics", ln.Addr())
	return nil
}

// Channel returns the run's event channel.
func (a *App) Channel() *bus.Channel {
	return a.channel
}

// Metrics returns the run's metrics collector.
func (a *App) Metrics() *metrics.Collector {
	return a.collector
}

// MetricsAddr returns the address the metrics endpoint listens on, or ""
// when it is disabled.
func (a *App) MetricsAddr() string {
	if a.metricsLn == nil {
		return ""
	}
	return a.metricsLn.Addr().String()
}

// NewController creates a flow controller bound to the run's channel and
// metrics.
func (a *App) NewController(alerts flow.AlertDisplayer, onComplete func(flow.Result)) *flow.Controller {
	return flow.NewController(flow.ControllerConfig{
		Channel:    a.channel,
		Alerts:     alerts,
		OnComplete: onComplete,
		Recorder:   a.collector,
	})
}

// Stop gracefully shuts down all components.
// It collects errors from each component and returns a combined error if any fail.
// Multiple calls to Stop() are safe and idempotent.
func (a *App) Stop() error {
	if a.stopped {
		return nil
	}
	a.stopped = true

	logger.Info("Stopping run")
	multiErr := &ierr.MultiError{}

	a.cancel()

	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.metrics.Shutdown(ctx); err != nil {
			multiErr.Append(fmt.Errorf("metrics shutdown failed: %w", err))
		}
		cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Debug("Background workers stopped")
	case <-time.After(2 * time.Second):
		logger.Warn("Background workers did not stop within 2s")
		multiErr.Append(ierr.NewTransientError("worker shutdown", errors.New("timed out after 2s")))
	}

	if a.nc != nil || a.ns != nil {
		if err := bus.Shutdown(a.nc, a.ns); err != nil {
			logger.Error("NATS shutdown failed: %v", err)
			multiErr.Append(fmt.Errorf("NATS shutdown failed: %w", err))
		}
	}
	a.nc = nil
	a.ns = nil

	logger.Info("Run stopped")
	return multiErr.ErrorOrNil()
}
