package workflow

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures exponential-backoff retry for one node's
// agent call. A nil policy means a single attempt.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first (0 = no retry).
	MaxRetries int
	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// Multiplier grows the delay between attempts.
	Multiplier float64
	// Jitter adds ±25% randomization to each delay.
	Jitter bool
	// RetryIf decides whether an error is worth retrying. Nil retries
	// every error.
	RetryIf func(error) bool
}

// DefaultRetryPolicy returns the policy applied to nodes that declare
// retries without details: three attempts with jittered exponential
// backoff, suited to transient upstream failures.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// normalized returns a copy with out-of-range fields clamped to sane
// values, so a hand-built policy cannot stall or busy-loop the
// scheduler.
func (p *RetryPolicy) normalized() RetryPolicy {
	out := *p
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	}
	if out.InitialDelay <= 0 {
		out.InitialDelay = time.Second
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = 30 * time.Second
	}
	if out.Multiplier < 1.0 {
		out.Multiplier = 2.0
	}
	return out
}

// delay computes the backoff before the given retry attempt (1-based).
func (p *RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		jitter := d * 0.25
		d += (rand.Float64()*2 - 1) * jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// shouldRetry reports whether err qualifies for another attempt.
func (p *RetryPolicy) shouldRetry(err error) bool {
	if p.RetryIf == nil {
		return true
	}
	return p.RetryIf(err)
}
