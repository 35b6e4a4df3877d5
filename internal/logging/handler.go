package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a retained line before truncation.
	MaxLineLength = 512

	// MaxBufferedLines is the number of recent lines retained.
	MaxBufferedLines = 32
)

// recentLines is the circular buffer shared by a RecentHandler and its
// WithAttrs/WithGroup children.
type recentLines struct {
	mu     sync.Mutex
	buffer []string
	bufIdx int
	count  int
}

// RecentHandler wraps a slog.Handler and keeps the most recent records at or
// above a minimum level as one-line strings. The exit summary prints them,
// since the log itself goes to a file or nowhere.
type RecentHandler struct {
	next     slog.Handler
	minLevel slog.Level
	lines    *recentLines

	attrs string // " k=v" pairs added through WithAttrs, already formatted
	group string // dotted group prefix, "" or "a.b."
}

// NewRecentHandler wraps next, retaining records at minLevel or above.
func NewRecentHandler(next slog.Handler, minLevel slog.Level) *RecentHandler {
	return &RecentHandler{
		next:     next,
		minLevel: minLevel,
		lines:    &recentLines{buffer: make([]string, MaxBufferedLines)},
	}
}

// Enabled reports whether either the wrapped handler or the buffer wants level.
func (h *RecentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel || h.next.Enabled(ctx, level)
}

// Handle retains r if it meets the minimum level and forwards it.
func (h *RecentHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel {
		h.store(h.formatRecord(r))
	}
	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

// WithAttrs returns a handler sharing the same buffer whose retained lines
// carry attrs.
func (h *RecentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := *h
	child.next = h.next.WithAttrs(attrs)

	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	child.attrs = b.String()
	return &child
}

// WithGroup returns a handler sharing the same buffer. Later attrs are
// retained as "name.key=value".
func (h *RecentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	child := *h
	child.next = h.next.WithGroup(name)
	child.group = h.group + name + "."
	return &child
}

func (h *RecentHandler) store(line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	l := h.lines
	l.mu.Lock()
	l.buffer[l.bufIdx] = line
	l.bufIdx = (l.bufIdx + 1) % MaxBufferedLines
	if l.count < MaxBufferedLines {
		l.count++
	}
	l.mu.Unlock()
}

// RecentLines returns up to n retained lines, oldest first.
func (h *RecentHandler) RecentLines(n int) []string {
	l := h.lines
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > l.count {
		n = l.count
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		lines = append(lines, l.buffer[idx])
	}
	return lines
}

// Last returns the most recent retained line, or "" if none.
func (h *RecentHandler) Last() string {
	if lines := h.RecentLines(1); len(lines) == 1 {
		return lines[0]
	}
	return ""
}

// formatRecord renders "LEVEL msg key=value ..." on one line, handler
// attrs first.
func (h *RecentHandler) formatRecord(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})
	return b.String()
}

func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		prefix := group
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, prefix, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s%s=%v", group, a.Key, a.Value.Any())
}
