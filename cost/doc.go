// Package cost provides reusable cost estimators for registry entries.
// Estimators are pure functions over an agent's inputs and output; the
// scheduler calls them once before a run with a nil output to obtain
// the admission estimate, and again on completion to record actual
// spend.
package cost
