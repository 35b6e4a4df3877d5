package protocol

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// DefaultReportTimeout bounds dial, write and ack read for one report.
const DefaultReportTimeout = 500 * time.Millisecond

// Reporter sends timing records to a dashboard, one connection per record.
// Safe for concurrent use.
type Reporter struct {
	addr    string
	timeout time.Duration
	logger  *slog.Logger

	// Whitespace selects the whitespace encoding instead of the delimited one.
	Whitespace bool
}

// NewReporter creates a reporter for addr. A zero timeout uses
// DefaultReportTimeout; a nil logger discards report failures.
func NewReporter(addr string, timeout time.Duration, logger *slog.Logger) *Reporter {
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reporter{addr: addr, timeout: timeout, logger: logger}
}

// LocalAddr returns the loopback address of a dashboard on port.
func LocalAddr(port int) string {
	return net.JoinHostPort("localhost", strconv.Itoa(port))
}

// Report writes r and waits for the acknowledgment.
// A missing or short ack is not an error: the protocol is fire-and-forget.
func (p *Reporter) Report(ctx context.Context, r Record) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", p.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload := Encode(r)
	if p.Whitespace {
		payload = EncodeFields(r)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	ack := make([]byte, len(Ack))
	if _, err := io.ReadFull(conn, ack); err != nil {
		p.logger.Debug("ack_missing", "addr", p.addr, "error", err)
	}
	return nil
}

// ReportBestEffort reports r and only logs failures. Use it from request
// paths where timing must never change the outcome of the wrapped operation.
func (p *Reporter) ReportBestEffort(ctx context.Context, r Record) {
	if err := p.Report(ctx, r); err != nil {
		p.logger.Warn("report_failed",
			"addr", p.addr,
			"origin", r.Origin,
			"elapsed_ms", r.Elapsed,
			"error", err,
		)
	}
}
