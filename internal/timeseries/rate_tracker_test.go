package timeseries

import (
	"sync"
	"testing"
	"time"
)

// mockClock provides deterministic time for testing.
type mockClock struct {
	mu   sync.Mutex
	time time.Time
}

func newMockClock(t time.Time) *mockClock {
	return &mockClock{time: t}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time = c.time.Add(d)
}

func TestRateTracker_Add(t *testing.T) {
	tests := []struct {
		name     string
		adds     []int64
		expected int64
	}{
		{"single add", []int64{1}, 1},
		{"multiple adds", []int64{1, 1, 3}, 5},
		{"zero ignored", []int64{2, 0, 2}, 4},
		{"negative ignored", []int64{2, -5, 2}, 4},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewRateTrackerWithClock(newMockClock(time.Now()))
			for _, n := range tt.adds {
				tracker.Add(n)
			}
			if got := tracker.Stats().Total; got != tt.expected {
				t.Errorf("Total = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestRateTracker_ConstantRate(t *testing.T) {
	clock := newMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tracker := NewRateTrackerWithClock(clock)

	// 10 records per second for 40 seconds.
	for i := 0; i < 40; i++ {
		tracker.Add(10)
		clock.Advance(time.Second)
		tracker.RecordSample()
	}

	stats := tracker.Stats()
	if stats.Rate1s < 9.9 || stats.Rate1s > 10.1 {
		t.Errorf("Rate1s = %f, want ~10", stats.Rate1s)
	}
	if stats.Rate30s < 9.9 || stats.Rate30s > 10.1 {
		t.Errorf("Rate30s = %f, want ~10", stats.Rate30s)
	}
	if stats.Overall < 9.9 || stats.Overall > 10.1 {
		t.Errorf("Overall = %f, want ~10", stats.Overall)
	}
}

func TestRateTracker_BurstThenIdle(t *testing.T) {
	clock := newMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tracker := NewRateTrackerWithClock(clock)

	tracker.Add(100)
	clock.Advance(time.Second)
	tracker.RecordSample()

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		tracker.RecordSample()
	}

	stats := tracker.Stats()
	if stats.Rate1s != 0 {
		t.Errorf("Rate1s after idle = %f, want 0", stats.Rate1s)
	}
	if stats.Rate30s <= 0 {
		t.Errorf("Rate30s = %f, want > 0 (burst still inside window)", stats.Rate30s)
	}
}

func TestRateTracker_RingBufferBounded(t *testing.T) {
	clock := newMockClock(time.Now())
	tracker := NewRateTrackerWithClock(clock)

	for i := 0; i < ringBufferSize*3; i++ {
		clock.Advance(time.Second)
		tracker.RecordSample()
	}
	if n := tracker.SampleCount(); n != ringBufferSize {
		t.Errorf("SampleCount = %d, want %d", n, ringBufferSize)
	}
}

func TestRateTracker_NoElapsedTime(t *testing.T) {
	tracker := NewRateTrackerWithClock(newMockClock(time.Now()))
	tracker.Add(5)
	stats := tracker.Stats()
	if stats.Rate1s != 0 || stats.Overall != 0 {
		t.Errorf("rates without elapsed time = %+v, want zeros", stats)
	}
}
