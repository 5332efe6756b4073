package audit

import (
	"context"
	"log/slog"
)

// Logger emits a structured audit trail of mutating actions.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, status string) {
	al.logger.InfoContext(ctx, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("status", status),
	)
}

func (al *Logger) LogBusinessMutation(ctx context.Context, userID, action, businessID, status string) {
	al.LogAction(ctx, userID, action, "business", businessID, status)
}

func (al *Logger) LogAnalysisMutation(ctx context.Context, userID, action, analysisID, status string) {
	al.LogAction(ctx, userID, action, "analysis", analysisID, status)
}

func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.logger.WarnContext(ctx, "audit",
		slog.String("action", "access_denied"),
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)
}
