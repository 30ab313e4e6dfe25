// Package store persists run summaries so operators can inspect
// finished and paused runs after the owning process restarts. Stored
// snapshots are observational: a summary loaded from a store cannot be
// resumed, because live run state (agent functions, conditions, the
// pending checkpoint's approval path) does not serialize.
package store
