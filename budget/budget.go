// Package budget defines the admission-control collaborator the
// scheduler consults before starting or resuming a run, plus a
// reference in-memory ledger implementation. The engine never refuses
// work mid-run; a budget change after admission does not retroactively
// abort a run.
package budget

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Decision is the outcome of a preflight check.
type Decision struct {
	Allowed   bool     `json:"allowed"`
	Reason    string   `json:"reason,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Remaining float64  `json:"remaining"`
}

// Preflighter is consulted with an estimated cost before a run starts
// and before a paused run resumes. Denial must be side-effect free.
type Preflighter interface {
	Preflight(ctx context.Context, estimatedCost float64) (Decision, error)
}

// Recorder receives actual spend as nodes complete.
type Recorder interface {
	Record(ctx context.Context, amount float64)
}

// Ledger is a thread-safe budget with a hard limit, a warning
// threshold, and a halt flag that denies all new admissions. It
// implements both Preflighter and Recorder.
type Ledger struct {
	mu     sync.RWMutex
	limit  float64
	spent  float64
	warnAt float64 // fraction of limit that triggers a warning
	halted bool
	logger *zap.Logger
}

// NewLedger creates a budget ledger with the given spend limit. The
// warning threshold defaults to 80% of the limit.
func NewLedger(limit float64, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		limit:  limit,
		warnAt: 0.8,
		logger: logger.With(zap.String("component", "budget_ledger")),
	}
}

// WithWarnThreshold sets the fraction of the limit at which preflight
// starts attaching warnings.
func (l *Ledger) WithWarnThreshold(fraction float64) *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnAt = fraction
	return l
}

// Preflight implements Preflighter.
func (l *Ledger) Preflight(ctx context.Context, estimatedCost float64) (Decision, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	remaining := l.limit - l.spent
	if l.halted {
		return Decision{Allowed: false, Reason: "budget halted", Remaining: remaining}, nil
	}
	if l.spent+estimatedCost > l.limit {
		return Decision{
			Allowed:   false,
			Reason:    fmt.Sprintf("estimated cost %.4f exceeds remaining budget %.4f", estimatedCost, remaining),
			Remaining: remaining,
		}, nil
	}

	dec := Decision{Allowed: true, Remaining: remaining}
	if l.limit > 0 && (l.spent+estimatedCost) >= l.limit*l.warnAt {
		dec.Warnings = append(dec.Warnings, fmt.Sprintf(
			"admission would bring spend to %.4f of %.4f limit", l.spent+estimatedCost, l.limit))
	}
	return dec, nil
}

// Record implements Recorder.
func (l *Ledger) Record(ctx context.Context, amount float64) {
	l.mu.Lock()
	l.spent += amount
	spent, limit := l.spent, l.limit
	l.mu.Unlock()

	if spent > limit {
		l.logger.Warn("budget overrun", zap.Float64("spent", spent), zap.Float64("limit", limit))
	}
}

// Halt denies all subsequent admissions until Release is called.
// In-flight runs are unaffected.
func (l *Ledger) Halt() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.halted = true
}

// Release lifts a halt.
func (l *Ledger) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.halted = false
}

// Spent returns the recorded spend so far.
func (l *Ledger) Spent() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.spent
}

// Remaining returns the budget left under the limit.
func (l *Ledger) Remaining() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limit - l.spent
}

// SetLimit adjusts the spend limit, e.g. after a top-up.
func (l *Ledger) SetLimit(limit float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = limit
}
