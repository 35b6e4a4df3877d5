// Package main provides reqtime-send, a smoke-test producer for reqtime-dash.
//
// It sends -count timing records for one origin, one connection per record,
// the same way an instrumented web server would.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/randomizedcoder/go-reqtime-dash/internal/logging"
	"github.com/randomizedcoder/go-reqtime-dash/internal/protocol"
)

type options struct {
	addr     string
	origin   string
	elapsed  float64
	jitter   float64
	count    int
	interval time.Duration
	format   string
	timeout  time.Duration
	verbose  bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 2
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := logging.NewLogger("text", level, opts.verbose)

	reporter := protocol.NewReporter(opts.addr, opts.timeout, logger)
	reporter.Whitespace = opts.format == "whitespace"

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctx := context.Background()

	failed := 0
	for i := 0; i < opts.count; i++ {
		rec := protocol.Record{
			Elapsed: jittered(rng, opts.elapsed, opts.jitter),
			Origin:  opts.origin,
		}
		if err := reporter.Report(ctx, rec); err != nil {
			logger.Warn("report_failed", "seq", i, "error", err)
			failed++
		} else {
			logger.Debug("reported", "seq", i, "elapsed_ms", rec.Elapsed, "origin", rec.Origin)
		}
		if opts.interval > 0 && i < opts.count-1 {
			time.Sleep(opts.interval)
		}
	}

	fmt.Printf("sent %d/%d records to %s\n", opts.count-failed, opts.count, opts.addr)
	if failed > 0 {
		return 1
	}
	return 0
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("reqtime-send", flag.ContinueOnError)
	fs.StringVar(&o.addr, "addr", protocol.LocalAddr(protocol.DefaultPort), "dashboard address")
	fs.StringVar(&o.origin, "origin", "/index.php", "origin (request path) to report")
	fs.Float64Var(&o.elapsed, "elapsed", 25, "elapsed time in milliseconds")
	fs.Float64Var(&o.jitter, "jitter", 0, "random jitter as a fraction of -elapsed (0-1)")
	fs.IntVar(&o.count, "count", 1, "number of records to send")
	fs.DurationVar(&o.interval, "interval", 0, "pause between records")
	fs.StringVar(&o.format, "format", "delimited", "wire form: delimited or whitespace")
	fs.DurationVar(&o.timeout, "timeout", protocol.DefaultReportTimeout, "per-record dial/write/ack timeout")
	fs.BoolVar(&o.verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	switch {
	case o.count < 1:
		return o, fmt.Errorf("-count must be at least 1 (got %d)", o.count)
	case o.elapsed < 0:
		return o, fmt.Errorf("-elapsed must not be negative (got %g)", o.elapsed)
	case o.jitter < 0 || o.jitter > 1:
		return o, fmt.Errorf("-jitter must be between 0 and 1 (got %g)", o.jitter)
	case o.origin == "":
		return o, fmt.Errorf("-origin must not be empty")
	case o.format != "delimited" && o.format != "whitespace":
		return o, fmt.Errorf("-format must be delimited or whitespace (got %q)", o.format)
	}
	return o, nil
}

// jittered returns base scaled by a uniform factor in [1-frac, 1+frac].
func jittered(rng *rand.Rand, base, frac float64) float64 {
	if frac == 0 {
		return base
	}
	return base * (1 + frac*(2*rng.Float64()-1))
}
