package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart EventType = "session_start"
	EventSessionStop  EventType = "session_stop"
	EventTranscript   EventType = "transcript"
	EventNodeFire     EventType = "node_fire"
	EventDispatch     EventType = "dispatch"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NewEventBase stamps an event with the current time.
func NewEventBase(t EventType, sessionID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, SessionID: sessionID}
}

// SessionEvent marks the start or stop of a session.
type SessionEvent struct {
	EventBase
	EntryNodes []string `json:"entry_nodes,omitempty"`
}

// TranscriptEvent summarizes one transcript step.
type TranscriptEvent struct {
	EventBase
	ExecutedNodes []string `json:"executed_nodes"`
	ActiveNodes   []string `json:"active_nodes"`
}

// NodeEvent represents a node firing.
type NodeEvent struct {
	EventBase
	NodeID string   `json:"node_id"`
	Edges  []string `json:"edges,omitempty"`
}

// DispatchEvent represents one stimulus pulse. Err is nil on success.
type DispatchEvent struct {
	EventBase
	NodeID string `json:"node_id,omitempty"`
	Mode   string `json:"mode"`
	Value  int    `json:"value"`
	Pulse  int    `json:"pulse"`
	Err    error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnSessionStart func(context.Context, *SessionEvent)
	OnSessionStop  func(context.Context, *SessionEvent)
	OnTranscript   func(context.Context, *TranscriptEvent)
	OnNodeFire     func(context.Context, *NodeEvent)
	OnDispatch     func(context.Context, *DispatchEvent)
}

func (h LifecycleHooks) SessionStarted(ctx context.Context, e *SessionEvent) {
	if h.OnSessionStart != nil {
		h.OnSessionStart(ctx, e)
	}
}

func (h LifecycleHooks) SessionStopped(ctx context.Context, e *SessionEvent) {
	if h.OnSessionStop != nil {
		h.OnSessionStop(ctx, e)
	}
}

func (h LifecycleHooks) TranscriptProcessed(ctx context.Context, e *TranscriptEvent) {
	if h.OnTranscript != nil {
		h.OnTranscript(ctx, e)
	}
}

func (h LifecycleHooks) NodeFired(ctx context.Context, e *NodeEvent) {
	if h.OnNodeFire != nil {
		h.OnNodeFire(ctx, e)
	}
}

func (h LifecycleHooks) Dispatched(ctx context.Context, e *DispatchEvent) {
	if h.OnDispatch != nil {
		h.OnDispatch(ctx, e)
	}
}

// MergeHooks returns hooks that call each of the given hooks in order.
func MergeHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *SessionEvent) {
			for _, h := range all {
				h.SessionStarted(ctx, e)
			}
		},
		OnSessionStop: func(ctx context.Context, e *SessionEvent) {
			for _, h := range all {
				h.SessionStopped(ctx, e)
			}
		},
		OnTranscript: func(ctx context.Context, e *TranscriptEvent) {
			for _, h := range all {
				h.TranscriptProcessed(ctx, e)
			}
		},
		OnNodeFire: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				h.NodeFired(ctx, e)
			}
		},
		OnDispatch: func(ctx context.Context, e *DispatchEvent) {
			for _, h := range all {
				h.Dispatched(ctx, e)
			}
		},
	}
}
