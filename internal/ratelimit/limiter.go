// Package ratelimit implements the in-process fixed-window limiter used
// to throttle dekont analysis operations per user. State is local and
// volatile: restarts reset counts and instances do not coordinate,
// which is acceptable for abuse throttling but makes this no hard quota
// boundary.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Operation types sharing the limiter
const (
	OpAnalysis       = "analysis"
	OpBatchAnalysis  = "batch_analysis"
	OpFailedAttempts = "failed_attempts"
)

// CodeRateLimitExceeded is the stable rejection code
const CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

// Result is the outcome of a limit check
type Result struct {
	IsValid bool
	Error   string
	Code    string
}

// Presets carries the per-operation window quotas loaded from config
type Presets struct {
	AnalysisPerHour       int
	BatchAnalysisPerHour  int
	FailedAttemptsPerHour int
}

type bucket struct {
	count     int
	resetTime time.Time
}

// Limiter holds fixed-window buckets keyed by (operation, identifier).
// It is injectable: construct one at the wiring root and pass it to the
// handlers that need it.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	presets Presets
	now     func() time.Time
}

// NewLimiter creates a Limiter with the given presets
func NewLimiter(presets Presets) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		presets: presets,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Check consumes one request from the (operation, identifier) bucket.
// A missing bucket, or one whose window has elapsed, is replaced with a
// fresh count of 1. At the limit the request is rejected and the bucket
// is not incremented further; the error reports whole minutes until the
// window resets, rounded up.
func (l *Limiter) Check(operation, identifier string, limit int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := operation + ":" + identifier

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetTime) {
		l.buckets[key] = &bucket{count: 1, resetTime: now.Add(window)}
		return Result{IsValid: true}
	}

	if b.count < limit {
		b.count++
		return Result{IsValid: true}
	}

	minutesLeft := int(math.Ceil(b.resetTime.Sub(now).Minutes()))
	if minutesLeft < 1 {
		minutesLeft = 1
	}
	return Result{
		IsValid: false,
		Error:   fmt.Sprintf("Çok fazla istek. Lütfen %d dakika sonra tekrar deneyin.", minutesLeft),
		Code:    CodeRateLimitExceeded,
	}
}

// CheckAnalysis applies the single-analysis preset (default 50/hour)
func (l *Limiter) CheckAnalysis(identifier string) Result {
	return l.Check(OpAnalysis, identifier, l.presets.AnalysisPerHour, time.Hour)
}

// CheckBatchAnalysis applies the batch-analysis preset (default 10/hour)
func (l *Limiter) CheckBatchAnalysis(identifier string) Result {
	return l.Check(OpBatchAnalysis, identifier, l.presets.BatchAnalysisPerHour, time.Hour)
}

// CheckFailedAttempts applies the failed-attempt tracking preset
// (default 20/hour)
func (l *Limiter) CheckFailedAttempts(identifier string) Result {
	return l.Check(OpFailedAttempts, identifier, l.presets.FailedAttemptsPerHour, time.Hour)
}

// Sweep deletes buckets whose window has elapsed and returns the number
// removed. Best-effort housekeeping: expired buckets are also replaced
// lazily on next access, the sweep only bounds memory growth.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.After(b.resetTime) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of live buckets. Useful for monitoring.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
