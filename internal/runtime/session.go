package runtime

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/haptix/internal/logging"
	"github.com/aretw0/haptix/pkg/domain"
)

// Step is the outcome of one transcript fragment.
// ActiveNodes is the full post-step listening set, not a diff.
type Step struct {
	Actions       []domain.ActionRecord `json:"actions"`
	ActiveNodes   []string              `json:"activeNodes"`
	ExecutedNodes []string              `json:"executedNodes"`
	ExecutedEdges []string              `json:"executedEdges"`
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID                string    `json:"sessionId"`
	ActiveNodes       []string  `json:"activeNodes"`
	LastExecutedNodes []string  `json:"lastExecutedNodes"`
	LastExecutedEdges []string  `json:"lastExecutedEdges"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Session is one running instance of a Graph.
//
// Process calls are serialized by a per-session mutex: a second call queues
// behind the first. Sessions never share mutable state with each other.
type Session struct {
	id        string
	graph     *domain.Graph
	executor  *Executor
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	createdAt time.Time

	stopped atomic.Bool

	mu        sync.Mutex
	active    map[string]struct{}
	lastNodes []string
	lastEdges []string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionHooks registers observability hooks.
func WithSessionHooks(hooks domain.LifecycleHooks) SessionOption {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession starts a session listening on the graph's entry nodes.
func NewSession(id string, graph *domain.Graph, executor *Executor, opts ...SessionOption) *Session {
	s := &Session{
		id:        id,
		graph:     graph,
		executor:  executor,
		logger:    logging.NewNop(),
		createdAt: time.Now(),
		active:    make(map[string]struct{}),
		lastNodes: []string{},
		lastEdges: []string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, entry := range graph.EntryNodes() {
		s.active[entry] = struct{}{}
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Graph returns the shared, read-only graph.
func (s *Session) Graph() *domain.Graph { return s.graph }

// Stop marks the session as stopped. Calls already running finish; calls
// still waiting for the lock fail with domain.ErrSessionNotFound.
// It returns false if the session was already stopped.
func (s *Session) Stop() bool {
	return s.stopped.CompareAndSwap(false, true)
}

// Stopped reports whether Stop was called.
func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// Process matches text against every active node and fires the matches in
// ascending ID order. Each firing runs the node's actions, deactivates the
// node and activates the targets of its outgoing edges. Every active node is
// matched against the same text; nodes activated during the step wait for
// the next one.
func (s *Session) Process(ctx context.Context, text string) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped.Load() {
		return Step{}, domain.ErrSessionNotFound
	}

	ctx = logging.WithSessionID(ctx, s.id)
	logger := logging.LogWith(ctx, s.logger)

	step := Step{
		Actions:       []domain.ActionRecord{},
		ExecutedNodes: []string{},
		ExecutedEdges: []string{},
	}

	for _, id := range s.candidates(text) {
		node, _ := s.graph.Node(id)
		nodeCtx := logging.WithNodeID(ctx, id)

		report := s.executor.Execute(nodeCtx, node.Actions)
		step.Actions = append(step.Actions, report.Records...)
		step.ExecutedNodes = append(step.ExecutedNodes, id)

		delete(s.active, id)
		var fired []string
		for _, e := range s.graph.Outgoing(id) {
			s.active[e.Target] = struct{}{}
			fired = append(fired, e.ID)
		}
		step.ExecutedEdges = append(step.ExecutedEdges, fired...)

		logger.Debug("Node fired",
			"node_id", id,
			"edges", fired,
			"dispatched", report.Dispatched,
			"failed", report.Failed,
		)
		s.hooks.NodeFired(nodeCtx, &domain.NodeEvent{
			EventBase: domain.NewEventBase(domain.EventNodeFire, s.id),
			NodeID:    id,
			Edges:     fired,
		})
	}

	s.lastNodes = slices.Clone(step.ExecutedNodes)
	s.lastEdges = slices.Clone(step.ExecutedEdges)
	step.ActiveNodes = s.activeLocked()

	s.hooks.TranscriptProcessed(ctx, &domain.TranscriptEvent{
		EventBase:     domain.NewEventBase(domain.EventTranscript, s.id),
		ExecutedNodes: step.ExecutedNodes,
		ActiveNodes:   step.ActiveNodes,
	})

	return step, nil
}

// candidates returns the active nodes whose trigger matches text, sorted by ID.
func (s *Session) candidates(text string) []string {
	var matched []string
	for id := range s.active {
		node, ok := s.graph.Node(id)
		if !ok {
			continue
		}
		if node.Trigger.Matches(text) {
			matched = append(matched, id)
		}
	}
	sort.Strings(matched)
	return matched
}

func (s *Session) activeLocked() []string {
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveNodes returns the nodes currently listening, in ascending order.
// It waits for an in-flight Process call to finish.
func (s *Session) ActiveNodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// Snapshot returns a copy of the session's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:                s.id,
		ActiveNodes:       s.activeLocked(),
		LastExecutedNodes: slices.Clone(s.lastNodes),
		LastExecutedEdges: slices.Clone(s.lastEdges),
		CreatedAt:         s.createdAt,
	}
}
