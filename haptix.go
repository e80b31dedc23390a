package haptix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/haptix/internal/logging"
	"github.com/aretw0/haptix/internal/presentation/graph"
	"github.com/aretw0/haptix/internal/runtime"
	"github.com/aretw0/haptix/internal/sanitize"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/aretw0/haptix/pkg/ports"
	"github.com/aretw0/haptix/pkg/presets"
	"github.com/aretw0/haptix/pkg/session"
	"github.com/google/uuid"
)

var (
	// ErrNotConfigured is returned when an operation needs a collaborator
	// (trigger store, token issuer) that the engine was built without.
	ErrNotConfigured = errors.New("not configured")
	// ErrInvalidRequest is returned for malformed ad-hoc stimulus or text-check requests.
	ErrInvalidRequest = errors.New("invalid request")
)

// Step is the outcome of one transcript fragment.
type Step = runtime.Step

// Snapshot is a read-only view of a session.
type Snapshot = runtime.Snapshot

// Report describes the pulses of one action sequence.
type Report = runtime.Report

// Engine is the high-level entry point for the haptix library.
// It owns the session registry and the action executor shared by all sessions.
type Engine struct {
	registry *session.Registry
	executor *runtime.Executor
	presets  *presets.Catalog
	store    ports.TriggerStore
	tokens   ports.TokenIssuer
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	sleep    runtime.SleepFunc
	maxText  int
	newID    func() string
	now      func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTriggerStore enables the stored trigger operations.
func WithTriggerStore(store ports.TriggerStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithTokenIssuer enables IssueScribeToken.
func WithTokenIssuer(tokens ports.TokenIssuer) Option {
	return func(e *Engine) {
		e.tokens = tokens
	}
}

// WithPresets replaces the built-in preset catalog.
func WithPresets(c *presets.Catalog) Option {
	return func(e *Engine) {
		e.presets = c
	}
}

// WithSleep replaces the timer used for waits and pulse intervals.
func WithSleep(fn runtime.SleepFunc) Option {
	return func(e *Engine) {
		e.sleep = fn
	}
}

// WithIDGenerator replaces the UUID generator used for session and trigger IDs.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithMaxTranscriptBytes limits the size of transcript fragments and
// check-text inputs. Larger inputs are rejected with ErrInvalidRequest.
func WithMaxTranscriptBytes(n int) Option {
	return func(e *Engine) {
		e.maxText = n
	}
}

// New creates an Engine that sends pulses through dispatcher.
func New(dispatcher ports.StimulusDispatcher, opts ...Option) (*Engine, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("stimulus dispatcher is required")
	}

	eng := &Engine{
		presets: presets.NewCatalog(),
		maxText: sanitize.DefaultMaxBytes,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.newID == nil {
		eng.newID = uuid.NewString
	}

	eng.executor = runtime.NewExecutor(dispatcher,
		runtime.WithExecutorLogger(eng.logger),
		runtime.WithExecutorHooks(eng.hooks),
		runtime.WithSleep(eng.sleep),
	)
	eng.registry = session.NewRegistry(eng.executor,
		session.WithLogger(eng.logger),
		session.WithHooks(eng.hooks),
		session.WithIDGenerator(eng.newID),
	)
	return eng, nil
}

// BuildGraph validates def and expands its presets.
func (e *Engine) BuildGraph(def domain.GraphDefinition) (*domain.Graph, error) {
	return domain.BuildGraph(def, domain.WithPresets(e.presets))
}

// StartSession builds def and starts a session listening on its entry nodes.
func (e *Engine) StartSession(ctx context.Context, def domain.GraphDefinition) (string, error) {
	g, err := e.BuildGraph(def)
	if err != nil {
		return "", err
	}
	return e.registry.Create(ctx, g)
}

// StartStoredSession starts a session from a saved trigger configuration.
func (e *Engine) StartStoredSession(ctx context.Context, triggerID string) (string, error) {
	cfg, err := e.GetTrigger(ctx, triggerID)
	if err != nil {
		return "", err
	}
	return e.StartSession(ctx, cfg.Definition)
}

// SubmitTranscript feeds a transcript fragment to the session.
// Calls on the same session are applied in arrival order; the call returns
// after every pulse it triggered has been sent or dropped.
// Control characters are stripped before matching.
func (e *Engine) SubmitTranscript(ctx context.Context, sessionID, text string) (Step, error) {
	clean, err := e.sanitize(text)
	if err != nil {
		return Step{}, err
	}
	return e.registry.Process(ctx, sessionID, clean)
}

func (e *Engine) sanitize(text string) (string, error) {
	clean, err := sanitize.Text(text, e.maxText)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return clean, nil
}

// StopSession removes the session. Later calls on it fail with domain.ErrSessionNotFound.
func (e *Engine) StopSession(ctx context.Context, sessionID string) error {
	return e.registry.Delete(ctx, sessionID)
}

// Sessions returns the IDs of running sessions in ascending order.
func (e *Engine) Sessions() []string {
	return e.registry.List()
}

// Session returns a snapshot of one session.
func (e *Engine) Session(sessionID string) (Snapshot, error) {
	s, err := e.registry.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// SessionDiagram renders the session's graph as a Mermaid flowchart with
// its listening nodes and last step highlighted.
func (e *Engine) SessionDiagram(sessionID string) (string, error) {
	s, err := e.registry.Get(sessionID)
	if err != nil {
		return "", err
	}
	snap := s.Snapshot()
	return graph.GenerateMermaid(s.Graph(), &graph.GraphOverlay{
		ActiveNodes:   snap.ActiveNodes,
		ExecutedNodes: snap.LastExecutedNodes,
		ExecutedEdges: snap.LastExecutedEdges,
	}), nil
}

// Close stops every session.
func (e *Engine) Close(ctx context.Context) {
	e.registry.Close(ctx)
}

// StimulusRequest is an ad-hoc stimulus outside any session.
// When Type names a preset the preset runs once; otherwise Value is sent
// Repeats times (default 1), pausing Interval seconds after each pulse.
type StimulusRequest struct {
	Mode     string  `json:"mode"`
	Type     string  `json:"type,omitempty"`
	Value    int     `json:"value,omitempty"`
	Repeats  *int    `json:"repeats,omitempty"`
	Interval float64 `json:"interval,omitempty"`
}

// Stimulate runs req immediately through the executor.
func (e *Engine) Stimulate(ctx context.Context, req StimulusRequest) (Report, error) {
	actions, err := e.requestActions(req)
	if err != nil {
		return Report{}, err
	}
	return e.executor.Execute(ctx, actions), nil
}

func (e *Engine) requestActions(req StimulusRequest) ([]domain.Action, error) {
	if req.Mode == "" {
		return nil, fmt.Errorf("%w: mode is required", ErrInvalidRequest)
	}
	if e.presets.Has(req.Type) {
		return e.presets.Resolve(req.Type, req.Mode, 1)
	}

	repeats := 1
	if req.Repeats != nil {
		repeats = *req.Repeats
	}
	a := domain.StimulusAction{Mode: req.Mode, Value: req.Value, Repeats: repeats, IntervalSeconds: req.Interval}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return []domain.Action{a}, nil
}

// CheckTextRequest asks whether Text contains SearchString and, if so,
// plays the preset named by Type.
type CheckTextRequest struct {
	Text         string `json:"text"`
	SearchString string `json:"search_string"`
	Mode         string `json:"mode"`
	Type         string `json:"type"`
}

// CheckTextResult reports the outcome of CheckText.
type CheckTextResult struct {
	Exists bool `json:"exists"`
}

// CheckText matches case-insensitively. An unknown Type plays nothing.
func (e *Engine) CheckText(ctx context.Context, req CheckTextRequest) (CheckTextResult, error) {
	if strings.TrimSpace(req.SearchString) == "" {
		return CheckTextResult{}, fmt.Errorf("%w: search_string is required", ErrInvalidRequest)
	}

	text, err := e.sanitize(req.Text)
	if err != nil {
		return CheckTextResult{}, err
	}

	exists := domain.NewPhraseTrigger(req.SearchString).Matches(text)
	if !exists || !e.presets.Has(req.Type) {
		return CheckTextResult{Exists: exists}, nil
	}

	actions, err := e.presets.Resolve(req.Type, req.Mode, 1)
	if err != nil {
		return CheckTextResult{Exists: exists}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	e.executor.Execute(ctx, actions)
	return CheckTextResult{Exists: exists}, nil
}

// IssueScribeToken returns a single-use realtime transcription token.
func (e *Engine) IssueScribeToken(ctx context.Context) (domain.ScribeToken, error) {
	if e.tokens == nil {
		return domain.ScribeToken{}, fmt.Errorf("token issuer: %w", ErrNotConfigured)
	}
	return e.tokens.IssueToken(ctx)
}

// SaveTrigger validates and stores cfg, assigning an ID when it has none.
func (e *Engine) SaveTrigger(ctx context.Context, cfg domain.TriggerConfig) (domain.TriggerConfig, error) {
	if e.store == nil {
		return domain.TriggerConfig{}, fmt.Errorf("trigger store: %w", ErrNotConfigured)
	}
	if _, err := e.BuildGraph(cfg.Definition); err != nil {
		return domain.TriggerConfig{}, err
	}
	if cfg.ID == "" {
		cfg.ID = e.newID()
	}
	cfg.UpdatedAt = e.now().UTC()

	if err := e.store.Save(ctx, cfg); err != nil {
		return domain.TriggerConfig{}, err
	}
	e.logger.Info("Trigger saved", "trigger_id", cfg.ID)
	return cfg, nil
}

// GetTrigger returns domain.ErrTriggerNotFound for unknown IDs.
func (e *Engine) GetTrigger(ctx context.Context, id string) (domain.TriggerConfig, error) {
	if e.store == nil {
		return domain.TriggerConfig{}, fmt.Errorf("trigger store: %w", ErrNotConfigured)
	}
	return e.store.Get(ctx, id)
}

// ListTriggers returns every stored configuration ordered by ID.
func (e *Engine) ListTriggers(ctx context.Context) ([]domain.TriggerConfig, error) {
	if e.store == nil {
		return nil, fmt.Errorf("trigger store: %w", ErrNotConfigured)
	}
	return e.store.List(ctx)
}

// DeleteTrigger removes a stored configuration. Running sessions are unaffected.
func (e *Engine) DeleteTrigger(ctx context.Context, id string) error {
	if e.store == nil {
		return fmt.Errorf("trigger store: %w", ErrNotConfigured)
	}
	return e.store.Delete(ctx, id)
}
