package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/haptix"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Engine is the part of haptix.Engine exposed to agents.
type Engine interface {
	StartSession(ctx context.Context, def domain.GraphDefinition) (string, error)
	StartStoredSession(ctx context.Context, triggerID string) (string, error)
	SubmitTranscript(ctx context.Context, sessionID, text string) (haptix.Step, error)
	StopSession(ctx context.Context, sessionID string) error
	Sessions() []string
}

var _ Engine = (*haptix.Engine)(nil)

// StartSessionArgs are the arguments of start_session.
type StartSessionArgs struct {
	Definition string `json:"definition,omitempty"`
	TriggerID  string `json:"trigger_id,omitempty"`
}

// StartSessionResponse is the result of start_session.
type StartSessionResponse struct {
	SessionID string `json:"sessionId" jsonschema_description:"Identifier of the new session"`
}

// SubmitTranscriptArgs are the arguments of submit_transcript.
type SubmitTranscriptArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// StepResponse mirrors the HTTP transcript response.
type StepResponse struct {
	Actions       []domain.ActionRecord `json:"actions" jsonschema_description:"Actions attempted, in execution order"`
	ActiveNodes   []string              `json:"activeNodes" jsonschema_description:"Nodes listening after the step"`
	ExecutedNodes []string              `json:"executedNodes" jsonschema_description:"Nodes fired, in ascending ID order"`
	ExecutedEdges []string              `json:"executedEdges" jsonschema_description:"Edges traversed"`
}

// StopSessionArgs are the arguments of stop_session.
type StopSessionArgs struct {
	SessionID string `json:"session_id"`
}

// StopSessionResponse is the result of stop_session.
type StopSessionResponse struct {
	Stopped bool `json:"stopped"`
}

// Server wraps the haptix Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("haptix-mcp", strings.TrimSpace(haptix.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: start_session
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a session from a workflow graph definition or a stored trigger configuration."),
		mcp.WithString("definition", mcp.Description("Graph definition as a JSON object with nodes, edges and entry_nodes")),
		mcp.WithString("trigger_id", mcp.Description("ID of a stored trigger configuration (alternative to definition)")),
		mcp.WithOutputSchema[StartSessionResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	// TOOL: submit_transcript
	submitTool := mcp.NewTool("submit_transcript",
		mcp.WithDescription("Feed a transcript fragment to a session. Matching nodes fire their stimuli and hand off along their edges."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Transcript fragment")),
		mcp.WithOutputSchema[StepResponse](),
	)
	s.mcpServer.AddTool(submitTool, mcp.NewStructuredToolHandler(s.handleSubmitTranscript))

	// TOOL: stop_session
	stopTool := mcp.NewTool("stop_session",
		mcp.WithDescription("Stop a session. Later transcript calls on it fail."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[StopSessionResponse](),
	)
	s.mcpServer.AddTool(stopTool, mcp.NewStructuredToolHandler(s.handleStopSession))
}

func (s *Server) handleStartSession(ctx context.Context, _ mcp.CallToolRequest, args StartSessionArgs) (StartSessionResponse, error) {
	var (
		id  string
		err error
	)
	switch {
	case args.TriggerID != "":
		id, err = s.engine.StartStoredSession(ctx, args.TriggerID)
	case args.Definition != "":
		var def domain.GraphDefinition
		if err := json.Unmarshal([]byte(args.Definition), &def); err != nil {
			return StartSessionResponse{}, fmt.Errorf("invalid definition: %w", err)
		}
		id, err = s.engine.StartSession(ctx, def)
	default:
		return StartSessionResponse{}, errors.New("one of definition or trigger_id is required")
	}
	if err != nil {
		return StartSessionResponse{}, fmt.Errorf("start session failed: %w", err)
	}
	return StartSessionResponse{SessionID: id}, nil
}

func (s *Server) handleSubmitTranscript(ctx context.Context, _ mcp.CallToolRequest, args SubmitTranscriptArgs) (StepResponse, error) {
	step, err := s.engine.SubmitTranscript(context.WithoutCancel(ctx), args.SessionID, args.Text)
	if err != nil {
		return StepResponse{}, fmt.Errorf("submit transcript failed: %w", err)
	}
	return StepResponse{
		Actions:       step.Actions,
		ActiveNodes:   step.ActiveNodes,
		ExecutedNodes: step.ExecutedNodes,
		ExecutedEdges: step.ExecutedEdges,
	}, nil
}

func (s *Server) handleStopSession(ctx context.Context, _ mcp.CallToolRequest, args StopSessionArgs) (StopSessionResponse, error) {
	if err := s.engine.StopSession(ctx, args.SessionID); err != nil {
		return StopSessionResponse{}, fmt.Errorf("stop session failed: %w", err)
	}
	return StopSessionResponse{Stopped: true}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: haptix://sessions
	s.mcpServer.AddResource(mcp.NewResource("haptix://sessions", "Running Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Sessions())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "haptix://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
