package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/haptix/internal/logging"
	"github.com/aretw0/haptix/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured line per event.
// Pulses are logged at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = logging.NewNop()
	}
	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_start", "session_id", e.SessionID, "entry_nodes", e.EntryNodes)
		},
		OnSessionStop: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_stop", "session_id", e.SessionID)
		},
		OnNodeFire: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_fire", "session_id", e.SessionID, "node_id", e.NodeID, "edges", e.Edges)
		},
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "dispatch", "session_id", e.SessionID, "mode", e.Mode, "value", e.Value, "pulse", e.Pulse, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "dispatch", "session_id", e.SessionID, "mode", e.Mode, "value", e.Value, "pulse", e.Pulse)
		},
	}
}
