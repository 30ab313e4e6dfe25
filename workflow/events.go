package workflow

import "time"

// EventType identifies a progress event emitted during a run.
type EventType string

const (
	// EventRunStart is emitted once admission control has passed.
	EventRunStart EventType = "run_start"
	// EventNodeStart is emitted before a node's agent call begins.
	EventNodeStart EventType = "node_start"
	// EventNodeComplete is emitted when a node reaches Completed.
	EventNodeComplete EventType = "node_complete"
	// EventNodeError is emitted when a node reaches Failed.
	EventNodeError EventType = "node_error"
	// EventNodeSkipped is emitted when a node's condition is false.
	EventNodeSkipped EventType = "node_skipped"
	// EventCheckpointHit is emitted when a checkpoint pauses the run.
	EventCheckpointHit EventType = "checkpoint_hit"
	// EventRunResumed is emitted when a paused run is resumed.
	EventRunResumed EventType = "run_resumed"
	// EventRunComplete is emitted when the layer walk ends un-paused.
	EventRunComplete EventType = "run_complete"
)

// Event carries information about one step of a run. Events are
// delivered synchronously on the dispatching goroutine; emitters must
// not block.
type Event struct {
	Type   EventType `json:"type"`
	RunID  string    `json:"run_id"`
	NodeID string    `json:"node_id,omitempty"`
	Data   any       `json:"data,omitempty"`
	Err    error     `json:"-"`
	At     time.Time `json:"at"`
}

// EventEmitter receives progress events. It is supplied explicitly by
// the caller in Options; there is no ambient registration.
type EventEmitter func(Event)
