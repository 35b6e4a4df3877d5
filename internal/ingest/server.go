// Package ingest accepts timing records over TCP and applies them to the
// shared dashboard state.
//
// Connections are served strictly one at a time: accept, a single bounded
// read, decode, apply, acknowledge, close. There is no per-connection
// goroutine, so records are applied in arrival order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randomizedcoder/go-reqtime-dash/internal/protocol"
	"github.com/randomizedcoder/go-reqtime-dash/internal/stats"
	"github.com/randomizedcoder/go-reqtime-dash/internal/timeseries"
)

// ErrAcceptFailed is returned by Serve when accept keeps failing after the
// configured number of retries.
var ErrAcceptFailed = errors.New("accept failed")

// BindError reports that the listening socket could not be created.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("cannot listen on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Observer receives ingest events. metrics.Collector implements it.
type Observer interface {
	RecordDecoded(r protocol.Record)
	DecodeFailed(err error)
	AckFailed()
	AcceptFailed()
}

type noopObserver struct{}

func (noopObserver) RecordDecoded(protocol.Record) {}
func (noopObserver) DecodeFailed(error)            {}
func (noopObserver) AckFailed()                    {}
func (noopObserver) AcceptFailed()                 {}

// Config holds the server's tunables.
type Config struct {
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	AcceptRetries int
	Backoff       BackoffConfig
	BackoffSeed   int64

	Logger   *slog.Logger
	Observer Observer                // optional
	Rates    *timeseries.RateTracker // optional
}

// Stats is a point-in-time copy of the server counters.
type Stats struct {
	Accepted       int64
	Applied        int64
	DecodeFailures int64
	AckFailures    int64
	AcceptErrors   int64
}

// Server is the ingestion service.
type Server struct {
	listener net.Listener
	state    *stats.State
	cfg      Config
	logger   *slog.Logger
	observer Observer
	backoff  *Backoff

	buf []byte // reused for every read; Serve is single-threaded

	closedOnce sync.Once
	closed     atomic.Bool
	conn       net.Conn
	connMu     sync.Mutex

	accepted       atomic.Int64
	applied        atomic.Int64
	decodeFailures atomic.Int64
	ackFailures    atomic.Int64
	acceptErrors   atomic.Int64
}

// Listen binds addr and returns a server that applies records to state.
// A bind failure is returned as *BindError.
func Listen(addr string, state *stats.State, cfg Config) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	return newServer(ln, state, cfg), nil
}

func newServer(ln net.Listener, state *stats.State, cfg Config) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = time.Second
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	if cfg.BackoffSeed == 0 {
		cfg.BackoffSeed = time.Now().UnixNano()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var observer Observer = noopObserver{}
	if cfg.Observer != nil {
		observer = cfg.Observer
	}

	return &Server{
		listener: ln,
		state:    state,
		cfg:      cfg,
		logger:   logger.With("component", "ingest"),
		observer: observer,
		backoff:  NewBackoff(cfg.BackoffSeed, cfg.Backoff),
		buf:      make([]byte, protocol.MaxRecordSize),
	}
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve runs the accept loop until ctx is cancelled, Close is called, or
// accept fails more than AcceptRetries times in a row.
// Returns nil on shutdown and an error wrapping ErrAcceptFailed otherwise.
func (s *Server) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	s.logger.Info("ingest_started", "addr", s.listener.Addr().String())
	defer s.logger.Info("ingest_stopped")

	failures := 0
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping(ctx) {
				return nil
			}

			s.acceptErrors.Add(1)
			s.observer.AcceptFailed()
			failures++

			if failures > s.cfg.AcceptRetries {
				s.logger.Error("accept_failed", "error", err, "failures", failures)
				return fmt.Errorf("%w: %v", ErrAcceptFailed, err)
			}

			delay := s.backoff.Next()
			s.logger.Warn("accept_retry", "error", err, "attempt", failures, "delay", delay)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}

		failures = 0
		s.backoff.Reset()
		s.accepted.Add(1)
		s.handle(conn)

		if s.stopping(ctx) {
			return nil
		}
	}
}

func (s *Server) stopping(ctx context.Context) bool {
	return s.closed.Load() || ctx.Err() != nil || s.state.ShutdownRequested()
}

// handle serves one connection: a single read, decode, apply, ack.
func (s *Server) handle(conn net.Conn) {
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	defer func() {
		s.connMu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.connMu.Unlock()
	}()

	remote := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
		s.logger.Debug("set_read_deadline_failed", "remote", remote, "error", err)
	}

	n, err := conn.Read(s.buf)
	if n == 0 {
		if err == nil {
			err = protocol.ErrEmpty
		}
		s.decodeFailed(remote, fmt.Errorf("read: %w", err))
	} else if rec, derr := protocol.Decode(s.buf[:n]); derr != nil {
		s.decodeFailed(remote, derr)
	} else {
		s.state.Apply(rec)
		s.applied.Add(1)
		if s.cfg.Rates != nil {
			s.cfg.Rates.Add(1)
		}
		s.observer.RecordDecoded(rec)
		s.logger.Debug("record_decoded", "remote", remote, "origin", rec.Origin, "elapsed_ms", rec.Elapsed)
	}

	// Ack regardless of the outcome; producers never see an error code.
	if s.closed.Load() {
		return
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		s.logger.Debug("set_write_deadline_failed", "remote", remote, "error", err)
	}
	if _, err := conn.Write([]byte(protocol.Ack)); err != nil {
		s.ackFailures.Add(1)
		s.observer.AckFailed()
		s.logger.Warn("ack_failed", "remote", remote, "error", err)
	}
}

func (s *Server) decodeFailed(remote string, err error) {
	s.decodeFailures.Add(1)
	s.observer.DecodeFailed(err)
	s.logger.Debug("decode_failed", "remote", remote, "error", err)
}

// Stats returns a copy of the server counters.
func (s *Server) Stats() Stats {
	return Stats{
		Accepted:       s.accepted.Load(),
		Applied:        s.applied.Load(),
		DecodeFailures: s.decodeFailures.Load(),
		AckFailures:    s.ackFailures.Load(),
		AcceptErrors:   s.acceptErrors.Load(),
	}
}

// Close stops the server. It closes the listener, which unblocks Accept,
// and the active connection if a read is in flight. Safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closedOnce.Do(func() {
		s.closed.Store(true)
		err = s.listener.Close()

		s.connMu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.connMu.Unlock()
	})
	return err
}
