// Package stats holds the dashboard's shared state: the recent-record history,
// cumulative per-origin averages and latency percentiles.
package stats

import "sort"

// RunningAverage is the cumulative mean of elapsed times for one origin.
type RunningAverage struct {
	Origin string
	Count  int64
	Sum    float64
}

// Mean returns Sum/Count, or 0 before the first sample.
func (r RunningAverage) Mean() float64 {
	if r.Count == 0 {
		return 0
	}
	return r.Sum / float64(r.Count)
}

// Accumulator keeps one RunningAverage per origin over the whole process
// lifetime. Entries are never evicted.
//
// Not safe for concurrent use; State serializes access.
type Accumulator struct {
	averages map[string]*RunningAverage
	samples  int64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{averages: make(map[string]*RunningAverage)}
}

// Record adds one sample for origin.
func (a *Accumulator) Record(origin string, elapsed float64) {
	ra, ok := a.averages[origin]
	if !ok {
		ra = &RunningAverage{Origin: origin}
		a.averages[origin] = ra
	}
	ra.Count++
	ra.Sum += elapsed
	a.samples++
}

// Average returns the mean for origin, false if origin was never recorded.
func (a *Accumulator) Average(origin string) (float64, bool) {
	ra, ok := a.averages[origin]
	if !ok {
		return 0, false
	}
	return ra.Mean(), true
}

// Len returns the number of distinct origins.
func (a *Accumulator) Len() int {
	return len(a.averages)
}

// TotalSamples returns the number of samples across all origins.
func (a *Accumulator) TotalSamples() int64 {
	return a.samples
}

// All returns copies of every entry sorted by origin.
func (a *Accumulator) All() []RunningAverage {
	out := make([]RunningAverage, 0, len(a.averages))
	for _, ra := range a.averages {
		out = append(out, *ra)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Origin < out[j].Origin })
	return out
}

// Deviation returns how far elapsed is from average, in percent of average.
// A zero average yields 0.
func Deviation(elapsed, average float64) float64 {
	if average == 0 {
		return 0
	}
	return (elapsed - average) / average * 100
}
