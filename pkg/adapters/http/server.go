package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/haptix"
	"github.com/aretw0/haptix/internal/logging"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Engine is the part of haptix.Engine the HTTP front door needs.
type Engine interface {
	StartSession(ctx context.Context, def domain.GraphDefinition) (string, error)
	StartStoredSession(ctx context.Context, triggerID string) (string, error)
	SubmitTranscript(ctx context.Context, sessionID, text string) (haptix.Step, error)
	StopSession(ctx context.Context, sessionID string) error
	Sessions() []string
	Session(sessionID string) (haptix.Snapshot, error)
	SessionDiagram(sessionID string) (string, error)
	Stimulate(ctx context.Context, req haptix.StimulusRequest) (haptix.Report, error)
	CheckText(ctx context.Context, req haptix.CheckTextRequest) (haptix.CheckTextResult, error)
	IssueScribeToken(ctx context.Context) (domain.ScribeToken, error)
	SaveTrigger(ctx context.Context, cfg domain.TriggerConfig) (domain.TriggerConfig, error)
	GetTrigger(ctx context.Context, id string) (domain.TriggerConfig, error)
	ListTriggers(ctx context.Context) ([]domain.TriggerConfig, error)
	DeleteTrigger(ctx context.Context, id string) error
}

var _ Engine = (*haptix.Engine)(nil)

// Server holds the handlers.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger         *slog.Logger
	allowedOrigins []string
	maxBodyBytes   int64
	metrics        http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAllowedOrigins sets the CORS allow-list. "*" allows any origin.
// An empty list disables CORS headers.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:       engine,
		Streams:      NewStreamManager(),
		logger:       logging.NewNop(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.StartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.StopSession)
			r.Post("/transcript", s.SubmitTranscript)
			r.Get("/events", s.SubscribeEvents)
			r.Get("/graph", s.GetSessionGraph)
		})
	})

	r.Post("/check-text", s.CheckText)
	r.Post("/trigger-stimulus", s.TriggerStimulus)
	r.Get("/scribe-token", s.GetScribeToken)

	r.Route("/triggers", func(r chi.Router) {
		r.Get("/", s.ListTriggers)
		r.Post("/", s.SaveTrigger)
		r.Get("/{triggerID}", s.GetTrigger)
		r.Delete("/{triggerID}", s.DeleteTrigger)
	})

	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.allowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

type startSessionRequest struct {
	domain.GraphDefinition
	TriggerID string `json:"trigger_id,omitempty"`
}

type startSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type transcriptRequest struct {
	Text *string `json:"text"`
}

// StartSession handles POST /sessions. The body is a graph definition, or
// {"trigger_id": "..."} to start from a stored configuration.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body startSessionRequest
	if !s.decode(w, r, &body) {
		return
	}

	var (
		id  string
		err error
	)
	if body.TriggerID != "" {
		id, err = s.Engine.StartStoredSession(r.Context(), body.TriggerID)
	} else {
		id, err = s.Engine.StartSession(r.Context(), body.GraphDefinition)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, startSessionResponse{SessionID: id})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Engine.Sessions()})
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Engine.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// GetSessionGraph handles GET /sessions/{sessionID}/graph.
// It returns a Mermaid flowchart of the session.
func (s *Server) GetSessionGraph(w http.ResponseWriter, r *http.Request) {
	diagram, err := s.Engine.SessionDiagram(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.mermaid; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(diagram))
}

// SubmitTranscript handles POST /sessions/{sessionID}/transcript.
//
// The call runs detached from the request context: a client disconnect
// must not cut a stimulus sequence short.
func (s *Server) SubmitTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body transcriptRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Text == nil {
		s.writeError(w, r, fmt.Errorf("%w: text is required", errBadRequest))
		return
	}

	step, err := s.Engine.SubmitTranscript(context.WithoutCancel(r.Context()), sessionID, *body.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if payload, err := json.Marshal(step); err == nil {
		s.Streams.Broadcast(sessionID, string(payload))
	}
	s.writeJSON(w, http.StatusOK, step)
}

// StopSession handles DELETE /sessions/{sessionID}.
func (s *Server) StopSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.Engine.StopSession(r.Context(), sessionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Streams.Close(sessionID)
	s.writeJSON(w, http.StatusOK, map[string]bool{"stopped": true})
}

// SubscribeEvents handles GET /sessions/{sessionID}/events (SSE).
// Every transcript step of the session is pushed as a data frame until the
// session stops or the client disconnects.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the lookup: a stop that lands after a successful
	// lookup is then guaranteed to close ch.
	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	if _, err := s.Engine.Session(sessionID); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: stopped\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "event: step\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// CheckText handles POST /check-text.
func (s *Server) CheckText(w http.ResponseWriter, r *http.Request) {
	var body haptix.CheckTextRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Engine.CheckText(context.WithoutCancel(r.Context()), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// TriggerStimulus handles POST /trigger-stimulus.
func (s *Server) TriggerStimulus(w http.ResponseWriter, r *http.Request) {
	var body haptix.StimulusRequest
	if !s.decode(w, r, &body) {
		return
	}
	report, err := s.Engine.Stimulate(context.WithoutCancel(r.Context()), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"actions":    report.Records,
		"dispatched": report.Dispatched,
		"failed":     report.Failed,
	})
}

// GetScribeToken handles GET /scribe-token.
func (s *Server) GetScribeToken(w http.ResponseWriter, r *http.Request) {
	tok, err := s.Engine.IssueScribeToken(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tok)
}

// ListTriggers handles GET /triggers.
func (s *Server) ListTriggers(w http.ResponseWriter, r *http.Request) {
	list, err := s.Engine.ListTriggers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// SaveTrigger handles POST /triggers.
func (s *Server) SaveTrigger(w http.ResponseWriter, r *http.Request) {
	var body domain.TriggerConfig
	if !s.decode(w, r, &body) {
		return
	}
	saved, err := s.Engine.SaveTrigger(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

// GetTrigger handles GET /triggers/{triggerID}.
func (s *Server) GetTrigger(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Engine.GetTrigger(r.Context(), chi.URLParam(r, "triggerID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

// DeleteTrigger handles DELETE /triggers/{triggerID}.
func (s *Server) DeleteTrigger(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DeleteTrigger(r.Context(), chi.URLParam(r, "triggerID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "haptix-http",
		"version": strings.TrimSpace(haptix.Version),
	})
}

// -- Helpers --

var errBadRequest = errors.New("bad request")

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return false
		}
		s.writeError(w, r, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err))
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
	Ref   string `json:"ref,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrTriggerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidGraph),
		errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, domain.ErrUnknownPreset),
		errors.Is(err, haptix.ErrInvalidRequest),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, haptix.ErrNotConfigured):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var gve *domain.GraphValidationError
	if errors.As(err, &gve) {
		resp.Ref = gve.Ref
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
