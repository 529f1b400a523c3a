package slogx

import (
	"context"
	"log/slog"
)

// Audit event names.
const (
	EventStrictReferer = "strict_referer_event"
	EventCodeReuse     = "authorization_code_reuse"
	EventTokenRevoked  = "token_revoked"
	EventLogout        = "logout"
)

// Audit records a security event on the request logger. Audit records are
// logged at warn level so they survive production log levels, and carry
// audit=true for shippers to filter on.
func Audit(ctx context.Context, event string, args ...any) {
	logger := FromContext(ctx)
	if !logger.Enabled(ctx, slog.LevelWarn) {
		return
	}
	attrs := append([]any{"audit", true, "event", event}, args...)
	logger.WarnContext(ctx, "audit", attrs...)
}
