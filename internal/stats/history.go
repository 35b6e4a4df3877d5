package stats

import "github.com/randomizedcoder/go-reqtime-dash/internal/protocol"

// DefaultHistoryCapacity is the number of records retained when no capacity
// is configured. It bounds memory, not what is displayed.
const DefaultHistoryCapacity = 10000

// History is a fixed-capacity ring of records in arrival order.
// Once full, each append overwrites the oldest record.
//
// Not safe for concurrent use; State serializes access.
type History struct {
	data  []protocol.Record
	head  int // next write position
	count int
	total int64
}

// NewHistory creates a history holding at most capacity records.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{data: make([]protocol.Record, capacity)}
}

// Append adds r as the most recent record.
func (h *History) Append(r protocol.Record) {
	h.data[h.head] = r
	h.head = (h.head + 1) % len(h.data)
	if h.count < len(h.data) {
		h.count++
	}
	h.total++
}

// Len returns the number of retained records.
func (h *History) Len() int { return h.count }

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.data) }

// Total returns the number of records ever appended.
func (h *History) Total() int64 { return h.total }

// Overwritten returns how many records were pushed out by capacity.
func (h *History) Overwritten() int64 { return h.total - int64(h.count) }

// Recent returns up to n records, most recent first.
// n <= 0 returns every retained record.
func (h *History) Recent(n int) []protocol.Record {
	if n <= 0 || n > h.count {
		n = h.count
	}
	out := make([]protocol.Record, n)
	size := len(h.data)
	for i := 0; i < n; i++ {
		out[i] = h.data[(h.head-1-i+size)%size]
	}
	return out
}
