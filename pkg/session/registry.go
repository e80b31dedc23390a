package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/haptix/internal/logging"
	"github.com/aretw0/haptix/internal/runtime"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/google/uuid"
)

// ErrNilGraph is returned when Create is called without a graph.
var ErrNilGraph = errors.New("session requires a graph")

// Registry maps session IDs to live sessions.
//
// The map is the only state it guards; each session serializes its own
// transcript calls, so work on different sessions never waits on the registry
// beyond a lookup.
type Registry struct {
	executor *runtime.Executor

	mu       sync.RWMutex
	sessions map[string]*runtime.Session

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	newID  func() string
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger configures a logger for the Registry and the sessions it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHooks registers lifecycle hooks for the Registry and its sessions.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = hooks
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRegistry creates an empty registry whose sessions run actions through executor.
func NewRegistry(executor *runtime.Executor, opts ...Option) *Registry {
	r := &Registry{
		executor: executor,
		sessions: make(map[string]*runtime.Session),
		logger:   logging.NewNop(), // Default to no-op
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a session on graph and returns its ID.
func (r *Registry) Create(ctx context.Context, graph *domain.Graph) (string, error) {
	if graph == nil {
		return "", ErrNilGraph
	}

	r.mu.Lock()
	id := r.newID()
	for _, taken := r.sessions[id]; taken; _, taken = r.sessions[id] {
		id = r.newID()
	}
	s := runtime.NewSession(id, graph, r.executor,
		runtime.WithSessionHooks(r.hooks),
		runtime.WithSessionLogger(r.logger),
	)
	r.sessions[id] = s
	r.mu.Unlock()

	entry := graph.EntryNodes()
	r.logger.Info("Session started", "session_id", id, "entry_nodes", entry)
	r.hooks.SessionStarted(ctx, &domain.SessionEvent{
		EventBase:  domain.NewEventBase(domain.EventSessionStart, id),
		EntryNodes: entry,
	})
	return id, nil
}

// Get returns the live session, not a copy.
func (r *Registry) Get(id string) (*runtime.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Process submits a transcript fragment to the session with the given ID.
func (r *Registry) Process(ctx context.Context, id, text string) (runtime.Step, error) {
	s, err := r.Get(id)
	if err != nil {
		return runtime.Step{}, err
	}
	return s.Process(ctx, text)
}

// Delete stops and removes the session. A transcript call already running
// finishes; later calls report domain.ErrSessionNotFound.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}

	s.Stop()
	r.logger.Info("Session stopped", "session_id", id)
	r.hooks.SessionStopped(ctx, &domain.SessionEvent{
		EventBase: domain.NewEventBase(domain.EventSessionStop, id),
	})
	return nil
}

// List returns the IDs of live sessions in ascending order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops every session. The registry stays usable.
func (r *Registry) Close(ctx context.Context) {
	for _, id := range r.List() {
		_ = r.Delete(ctx, id)
	}
}
