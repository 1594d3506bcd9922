package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/serverhub/internal/infrastructure/logger"
)

// Audit statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{logger: l.With(slog.String("component", "audit")), now: time.Now}
}

func (al *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, status, details string) {
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", logger.RequestID(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

func (al *Logger) LogServerChange(ctx context.Context, userID, action, serverID, status, details string) {
	al.LogAction(ctx, userID, action, "server", serverID, status, details)
}

func (al *Logger) LogSectionChange(ctx context.Context, userID, action, sectionID, status, details string) {
	al.LogAction(ctx, userID, action, "section", sectionID, status, details)
}

func (al *Logger) LogAuth(ctx context.Context, userID, action, status, details string) {
	al.LogAction(ctx, userID, action, "session", "", status, details)
}

func (al *Logger) LogDenied(ctx context.Context, userID, resource, resourceID, reason string) {
	al.LogAction(ctx, userID, "access_denied", resource, resourceID, StatusDenied, reason)
}
