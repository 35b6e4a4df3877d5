package ingest

import (
	"math/rand"
	"time"
)

// BackoffConfig shapes the pause between accept retries.
type BackoffConfig struct {
	Initial    time.Duration // first pause (default: 50ms)
	Max        time.Duration // pause cap before jitter (default: 1s)
	Multiplier float64       // growth per consecutive failure (default: 1.7)
	JitterPct  float64       // spread as a fraction of the pause (default: 0.4 = ±20%)
}

// DefaultBackoffConfig returns the accept-retry defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    50 * time.Millisecond,
		Max:        time.Second,
		Multiplier: 1.7,
		JitterPct:  0.4,
	}
}

// Backoff yields growing, jittered pauses for consecutive accept failures.
// The accept loop owns it; it is not safe for concurrent use.
type Backoff struct {
	cfg  BackoffConfig
	step time.Duration // un-jittered pause for the next failure
	rng  *rand.Rand
}

// NewBackoff creates a Backoff whose jitter sequence is fixed by seed.
func NewBackoff(seed int64, cfg BackoffConfig) *Backoff {
	return &Backoff{
		cfg:  cfg,
		step: cfg.Initial,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Next returns the pause before the next accept retry and grows the step.
func (b *Backoff) Next() time.Duration {
	pause := min(b.step, b.cfg.Max)
	b.step = min(time.Duration(float64(pause)*b.cfg.Multiplier), b.cfg.Max)

	if b.cfg.JitterPct > 0 {
		spread := float64(pause) * b.cfg.JitterPct
		pause += time.Duration(spread*b.rng.Float64() - spread/2)
	}
	return max(pause, 0)
}

// Reset restores the initial pause after a successful accept.
func (b *Backoff) Reset() {
	b.step = b.cfg.Initial
}
