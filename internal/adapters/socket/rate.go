package socket

import (
	"sort"
	"sync"
	"time"
)

// RateTracker collects (duration, source bytes) samples from tokenize and
// parse requests and computes the P50 microseconds per KiB over a rolling
// window. Safe for concurrent use.
type RateTracker struct {
	mu      sync.Mutex
	window  time.Duration
	samples []rateSample
}

type rateSample struct {
	ts       time.Time
	usPerKiB float64
}

// minSampleBytes drops requests too small for a per-KiB rate to mean anything.
const minSampleBytes = 256

// minSamples is how many samples MicrosPerKiB needs before it reports.
const minSamples = 5

// NewRateTracker creates a tracker with the given rolling window duration.
func NewRateTracker(window time.Duration) *RateTracker {
	return &RateTracker{window: window}
}

// Record adds a sample at the current time.
func (r *RateTracker) Record(d time.Duration, srcBytes int) {
	r.RecordAt(time.Now(), d, srcBytes)
}

// RecordAt adds a sample at a specific timestamp. Sources under 256 bytes
// and non-positive durations are skipped.
func (r *RateTracker) RecordAt(ts time.Time, d time.Duration, srcBytes int) {
	if srcBytes < minSampleBytes || d <= 0 {
		return
	}
	us := float64(d) / float64(time.Microsecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, rateSample{ts: ts, usPerKiB: us * 1024 / float64(srcBytes)})
	r.evict(ts)
}

// MicrosPerKiB returns the median rate within the window, or 0 with fewer
// than 5 samples.
func (r *RateTracker) MicrosPerKiB() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evict(time.Now())
	if len(r.samples) < minSamples {
		return 0
	}
	rates := make([]float64, len(r.samples))
	for i, s := range r.samples {
		rates[i] = s.usPerKiB
	}
	sort.Float64s(rates)
	return rates[len(rates)/2]
}

// Reset clears all samples.
func (r *RateTracker) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = nil
}

// evict removes samples older than the window. Caller holds mu.
func (r *RateTracker) evict(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.samples) && r.samples[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		r.samples = r.samples[i:]
	}
}
