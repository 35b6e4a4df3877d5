// Package metrics exposes Prometheus metrics for the request-timing receiver.
//
// Metrics are optional. The collector is always constructed so the ingest
// loop has a single observer, but the HTTP endpoint only starts when a
// metrics address is configured.
package metrics

import (
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/randomizedcoder/go-reqtime-dash/internal/protocol"
	"github.com/randomizedcoder/go-reqtime-dash/internal/stats"
	"github.com/randomizedcoder/go-reqtime-dash/internal/timeseries"
)

// Version is reported through reqtime_info.
const Version = "1.0"

// elapsedBuckets are in seconds, spanning 1ms to 30s.
var elapsedBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
	0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0,
}

// Collector owns the receiver's Prometheus metrics.
type Collector struct {
	info *prometheus.GaugeVec

	recordsTotal        prometheus.Counter
	decodeFailuresTotal prometheus.Counter
	ackFailuresTotal    prometheus.Counter
	acceptErrorsTotal   prometheus.Counter

	elapsed prometheus.Histogram

	historyRecords prometheus.Gauge
	overwritten    prometheus.Gauge
	origins        prometheus.Gauge
	rate1s         prometheus.Gauge
	rate30s        prometheus.Gauge
	p50            prometheus.Gauge
	p95            prometheus.Gauge
	p99            prometheus.Gauge
	uptime         prometheus.Gauge

	startTime time.Time

	mu            sync.Mutex
	lastDecodeErr string
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	ListenAddr      string
	HistoryCapacity int
}

// NewCollectorWithRegistry creates a collector registered on registry.
// Each orchestrator owns a private registry so runs never collide.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reqtime_info",
				Help: "Information about the receiver (value always 1)",
			},
			[]string{"version", "listen_addr", "history_capacity"},
		),
		recordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqtime_records_total",
			Help: "Timing records decoded and applied",
		}),
		decodeFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqtime_decode_failures_total",
			Help: "Connections whose payload could not be decoded",
		}),
		ackFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqtime_ack_failures_total",
			Help: "Acknowledgements that could not be written",
		}),
		acceptErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqtime_accept_errors_total",
			Help: "Listener accept errors",
		}),
		elapsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reqtime_elapsed_seconds",
			Help:    "Producer-reported elapsed time distribution",
			Buckets: elapsedBuckets,
		}),
		historyRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtime_history_records",
			Help: "Records currently retained in the history ring",
		}),
		overwritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtime_history_overwritten",
			Help: "Records evicted from the history ring",
		}),
		origins: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtime_origins",
			Help: "Distinct origins seen",
		}),
		rate1s: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtime_records_per_second_1s",
			Help: "Ingest rate averaged over the last second",
		}),
		rate30s: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtime_records_per_second_30s",
			Help: "Ingest rate averaged over the last 30 seconds",
		}),
		p50: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtime_elapsed_p50_seconds",
			Help: "Elapsed time 50th percentile (median)",
		}),
		p95: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtime_elapsed_p95_seconds",
			Help: "Elapsed time 95th percentile",
		}),
		p99: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtime_elapsed_p99_seconds",
			Help: "Elapsed time 99th percentile",
		}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtime_uptime_seconds",
			Help: "Seconds since the receiver started",
		}),
		startTime: time.Now(),
	}

	registry.MustRegister(
		c.info,
		c.recordsTotal,
		c.decodeFailuresTotal,
		c.ackFailuresTotal,
		c.acceptErrorsTotal,
		c.elapsed,
		c.historyRecords,
		c.overwritten,
		c.origins,
		c.rate1s,
		c.rate30s,
		c.p50,
		c.p95,
		c.p99,
		c.uptime,
	)

	c.info.WithLabelValues(Version, cfg.ListenAddr, strconv.Itoa(cfg.HistoryCapacity)).Set(1)

	return c
}

// =============================================================================
// Ingest events
// =============================================================================

// RecordDecoded counts an applied record. Elapsed is converted from
// milliseconds to seconds for the histogram.
func (c *Collector) RecordDecoded(r protocol.Record) {
	c.recordsTotal.Inc()
	c.elapsed.Observe(r.Elapsed / 1000)
}

// DecodeFailed counts a dropped payload.
func (c *Collector) DecodeFailed(err error) {
	c.decodeFailuresTotal.Inc()
	if err == nil {
		return
	}
	c.mu.Lock()
	c.lastDecodeErr = err.Error()
	c.mu.Unlock()
}

// AckFailed counts an acknowledgement write failure.
func (c *Collector) AckFailed() {
	c.ackFailuresTotal.Inc()
}

// AcceptFailed counts a listener accept error.
func (c *Collector) AcceptFailed() {
	c.acceptErrorsTotal.Inc()
}

// LastDecodeError returns the most recent decode failure message.
func (c *Collector) LastDecodeError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDecodeErr
}

// =============================================================================
// Periodic updates
// =============================================================================

// Update refreshes gauges from a snapshot and the ingest rate. Called once
// per second from the orchestrator's stats loop.
func (c *Collector) Update(snap stats.Snapshot, rates timeseries.RateStats) {
	c.historyRecords.Set(float64(snap.Retained))
	c.overwritten.Set(float64(snap.Overwritten))
	c.origins.Set(float64(snap.Origins))
	c.rate1s.Set(rates.Rate1s)
	c.rate30s.Set(rates.Rate30s)
	c.p50.Set(snap.P50 / 1000)
	c.p95.Set(snap.P95 / 1000)
	c.p99.Set(snap.P99 / 1000)
	c.uptime.Set(time.Since(c.startTime).Seconds())
}

// =============================================================================
// Exposition
// =============================================================================

// WriteText writes every family from g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	var errs []error
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
