// Package orchestrator wires the receiver together: shared state, the
// ingestion service, optional metrics and the terminal dashboard.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-reqtime-dash/internal/config"
	"github.com/randomizedcoder/go-reqtime-dash/internal/ingest"
	"github.com/randomizedcoder/go-reqtime-dash/internal/logging"
	"github.com/randomizedcoder/go-reqtime-dash/internal/metrics"
	"github.com/randomizedcoder/go-reqtime-dash/internal/stats"
	"github.com/randomizedcoder/go-reqtime-dash/internal/timeseries"
	"github.com/randomizedcoder/go-reqtime-dash/internal/tui"
)

// statsInterval is how often rates are sampled and gauges refreshed.
const statsInterval = time.Second

// Options are the process-level hooks the binary supplies.
type Options struct {
	// Stdout receives the exit summary (default os.Stdout).
	Stdout io.Writer

	// MetricsDump, when set, receives a Prometheus text dump at exit.
	MetricsDump io.Writer

	// Recent supplies warning lines for the exit summary (optional).
	Recent *logging.RecentHandler

	// ProgramOptions are appended to the Bubble Tea program options.
	ProgramOptions []tea.ProgramOption
}

// Orchestrator coordinates all components for one dashboard run.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger
	opts   Options

	state    *stats.State
	rates    *timeseries.RateTracker
	registry *prometheus.Registry
	metrics  *metrics.Collector

	ingest        *ingest.Server
	metricsServer *metrics.Server

	startTime time.Time
}

// New creates an Orchestrator. Nothing is bound until Listen.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	registry := prometheus.NewRegistry()
	return &Orchestrator{
		config:   cfg,
		logger:   logger,
		opts:     opts,
		state:    stats.NewState(cfg.HistoryCapacity),
		rates:    timeseries.NewRateTracker(),
		registry: registry,
		metrics: metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
			ListenAddr:      cfg.ListenAddr,
			HistoryCapacity: cfg.HistoryCapacity,
		}, registry),
	}
}

// Listen binds the ingestion socket and, if configured, the metrics endpoint.
// A bind failure on the ingestion socket is returned as *ingest.BindError.
func (o *Orchestrator) Listen() error {
	srv, err := ingest.Listen(o.config.ListenAddr, o.state, ingest.Config{
		ReadTimeout:   o.config.ReadTimeout,
		WriteTimeout:  o.config.WriteTimeout,
		AcceptRetries: o.config.AcceptRetries,
		Backoff: ingest.BackoffConfig{
			Initial:    o.config.BackoffInitial,
			Max:        o.config.BackoffMax,
			Multiplier: o.config.BackoffMultiply,
			JitterPct:  0.4,
		},
		Logger:   o.logger,
		Observer: o.metrics,
		Rates:    o.rates,
	})
	if err != nil {
		return err
	}
	o.ingest = srv

	if o.config.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(o.config.MetricsAddr, o.registry, o.logger)
		if err := o.metricsServer.Start(); err != nil {
			o.ingest.Close()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	o.logger.Info("listening",
		"addr", srv.Addr().String(),
		"history_capacity", o.config.HistoryCapacity,
		"metrics_addr", o.config.MetricsAddr,
	)
	return nil
}

// Run shows the dashboard until the user quits, a signal arrives, ctx is
// cancelled, or ingestion fails. Listen must have succeeded first.
// A fatal ingestion error is returned after the terminal is restored.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.ingest == nil {
		return errors.New("orchestrator: Run called before Listen")
	}
	o.startTime = time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(tui.Config{
		State:        o.state,
		Rates:        o.rates,
		PollInterval: o.config.PollInterval,
		OnQuit:       cancel,
	})

	programOpts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	}, o.opts.ProgramOptions...)
	program := tea.NewProgram(model, programOpts...)

	ingestDone := make(chan error, 1)
	go func() {
		err := o.ingest.Serve(ctx)
		if err != nil {
			o.logger.Error("ingest_failed", "error", err)
			tui.SendIngestFailed(program, err)
		}
		ingestDone <- err
	}()

	statsDone := make(chan struct{})
	go func() {
		defer close(statsDone)
		o.statsLoop(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			o.logger.Info("received_signal", "signal", sig.String())
			tui.SendQuit(program)
		case <-ctx.Done():
			tui.SendQuit(program)
		}
	}()

	final, runErr := program.Run()

	// Stop ingestion; an in-flight read gets ShutdownGrace before we detach.
	o.state.RequestShutdown()
	cancel()
	var ingestErr error
	select {
	case ingestErr = <-ingestDone:
	case <-time.After(o.config.ShutdownGrace):
		o.logger.Warn("ingest_detached", "grace", o.config.ShutdownGrace)
	}
	<-statsDone

	o.shutdownMetrics()

	if runErr != nil {
		return fmt.Errorf("dashboard: %w", runErr)
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	if ingestErr != nil {
		return ingestErr
	}

	o.printExitSummary()
	return nil
}

// statsLoop samples the ingest rate and refreshes gauges once per second.
// Marking the state render-dirty keeps the status line's rates current when
// no records arrive.
func (o *Orchestrator) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.rates.RecordSample()
			o.metrics.Update(o.state.Snapshot(0), o.rates.Stats())
			o.state.MarkRenderDirty()
		}
	}
}

func (o *Orchestrator) shutdownMetrics() {
	if o.opts.MetricsDump != nil {
		if err := metrics.WriteText(o.opts.MetricsDump, o.registry); err != nil {
			o.logger.Warn("metrics_dump_failed", "error", err)
		}
	}

	if o.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.metricsServer.Shutdown(ctx); err != nil {
		o.logger.Warn("metrics_server_shutdown_error", "error", err)
	}
}

// printExitSummary prints a summary of the run.
func (o *Orchestrator) printExitSummary() {
	ist := o.ingest.Stats()
	cfg := stats.SummaryConfig{
		Duration:        time.Since(o.startTime),
		ListenAddr:      o.ingest.Addr().String(),
		DecodeFailures:  ist.DecodeFailures,
		LastDecodeError: o.metrics.LastDecodeError(),
		AckFailures:     ist.AckFailures,
		MetricsAddr:     o.config.MetricsAddr,
	}
	if o.opts.Recent != nil {
		cfg.RecentWarnings = o.opts.Recent.RecentLines(5)
	}
	fmt.Fprint(o.opts.Stdout, stats.FormatExitSummary(o.state, cfg))

	o.logger.Info("exit_summary",
		"records", ist.Applied,
		"decode_failures", ist.DecodeFailures,
		"ack_failures", ist.AckFailures,
		"accept_errors", ist.AcceptErrors,
	)
}

// State returns the shared dashboard state.
func (o *Orchestrator) State() *stats.State {
	return o.state
}

// Addr returns the bound ingestion address, or "" before Listen.
func (o *Orchestrator) Addr() string {
	if o.ingest == nil {
		return ""
	}
	return o.ingest.Addr().String()
}

// Metrics returns the metrics collector for external access.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}
