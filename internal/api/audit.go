package api

import (
	"log/slog"
	"net/http"

	"github.com/tmarchal/chantier/internal/auth"
)

// auditLog emits a structured audit log entry for a mutating action.
func auditLog(r *http.Request, action string, resourceType string, resourceID string, detail ...any) {
	attrs := []any{
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"ip", clientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	}

	if c := auth.CallerFromContext(r.Context()); c != nil {
		attrs = append(attrs, "user_id", c.ID, "user_email", c.Email)
	}

	attrs = append(attrs, detail...)
	slog.Info("audit", attrs...)
}
