package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/influxdata/tdigest"

	"github.com/randomizedcoder/go-reqtime-dash/internal/protocol"
)

const (
	// overallCompression sizes the digest over all records (~100 centroids).
	overallCompression = 100

	// originCompression sizes each per-origin digest. Origins can be
	// numerous (one per served file), so these are kept small.
	originCompression = 20
)

// Row is one history record with its derived fields, computed at snapshot time.
type Row struct {
	protocol.Record
	Average   float64
	Deviation float64 // percent
}

// Snapshot is a consistent copy of the state for one frame.
type Snapshot struct {
	Rows []Row // most recent first

	TotalRecords int64 // every record ever applied
	Retained     int   // records still in the history ring
	Overwritten  int64 // records pushed out by capacity
	Origins      int

	// Latency percentiles over every record, in ms. Zero before the first record.
	P50, P95, P99 float64

	TakenAt time.Time
}

// OriginSummary is the per-origin line of the exit summary.
type OriginSummary struct {
	Origin string
	Count  int64
	Mean   float64
	P95    float64
}

// State is the dashboard state shared by the ingestion goroutine and the
// render loop.
//
// History, averages and digests are guarded by one mutex. The dirty and
// shutdown flags are atomics: they only gate redraws and loop exit.
type State struct {
	mu      sync.Mutex
	history *History
	acc     *Accumulator
	overall *tdigest.TDigest
	digests map[string]*tdigest.TDigest

	renderDirty atomic.Bool
	layoutDirty atomic.Bool
	shutdown    atomic.Bool

	startTime time.Time
}

// NewState creates a state with a history of the given capacity.
// Both dirty flags start set so the first tick draws a frame.
func NewState(historyCapacity int) *State {
	s := &State{
		history:   NewHistory(historyCapacity),
		acc:       NewAccumulator(),
		overall:   tdigest.NewWithCompression(overallCompression),
		digests:   make(map[string]*tdigest.TDigest),
		startTime: time.Now(),
	}
	s.renderDirty.Store(true)
	s.layoutDirty.Store(true)
	return s
}

// Apply stores a decoded record and marks the view dirty.
func (s *State) Apply(r protocol.Record) {
	s.mu.Lock()
	s.history.Append(r)
	s.acc.Record(r.Origin, r.Elapsed)
	s.overall.Add(r.Elapsed, 1)
	d, ok := s.digests[r.Origin]
	if !ok {
		d = tdigest.NewWithCompression(originCompression)
		s.digests[r.Origin] = d
	}
	d.Add(r.Elapsed, 1)
	s.renderDirty.Store(true)
	s.mu.Unlock()
}

// Snapshot copies up to rows most recent records with their averages and
// deviations. rows <= 0 copies no rows but still fills the totals.
func (s *State) Snapshot(rows int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		TotalRecords: s.history.Total(),
		Retained:     s.history.Len(),
		Overwritten:  s.history.Overwritten(),
		Origins:      s.acc.Len(),
		TakenAt:      time.Now(),
	}

	if s.history.Total() > 0 {
		snap.P50 = s.overall.Quantile(0.50)
		snap.P95 = s.overall.Quantile(0.95)
		snap.P99 = s.overall.Quantile(0.99)
	}

	if rows <= 0 {
		return snap
	}

	recent := s.history.Recent(rows)
	snap.Rows = make([]Row, len(recent))
	for i, r := range recent {
		avg, _ := s.acc.Average(r.Origin)
		snap.Rows[i] = Row{
			Record:    r,
			Average:   avg,
			Deviation: Deviation(r.Elapsed, avg),
		}
	}
	return snap
}

// Average returns the cumulative mean for origin.
func (s *State) Average(origin string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.Average(origin)
}

// Counts returns the retained history length and total accumulated samples.
func (s *State) Counts() (historyLen int, samples int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len(), s.acc.TotalSamples()
}

// Summaries returns per-origin totals sorted by origin.
func (s *State) Summaries() []OriginSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.acc.All()
	out := make([]OriginSummary, len(all))
	for i, ra := range all {
		out[i] = OriginSummary{
			Origin: ra.Origin,
			Count:  ra.Count,
			Mean:   ra.Mean(),
		}
		if d, ok := s.digests[ra.Origin]; ok {
			out[i].P95 = d.Quantile(0.95)
		}
	}
	return out
}

// MarkLayoutDirty flags that the terminal size changed.
func (s *State) MarkLayoutDirty() { s.layoutDirty.Store(true) }

// MarkRenderDirty flags that the view must be redrawn.
func (s *State) MarkRenderDirty() { s.renderDirty.Store(true) }

// ConsumeDirty clears both dirty flags and reports what was set.
// Take the snapshot after this call so records applied meanwhile re-dirty
// the state instead of being lost.
func (s *State) ConsumeDirty() (render, layout bool) {
	return s.renderDirty.Swap(false), s.layoutDirty.Swap(false)
}

// RequestShutdown asks every task to stop.
func (s *State) RequestShutdown() { s.shutdown.Store(true) }

// ShutdownRequested reports whether RequestShutdown was called.
func (s *State) ShutdownRequested() bool { return s.shutdown.Load() }

// Elapsed returns the time since the state was created.
func (s *State) Elapsed() time.Duration { return time.Since(s.startTime) }
