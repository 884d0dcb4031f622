package utils

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"conductor/internal/models"
	"conductor/internal/requestctx"
)

// AuditLogger records entity changes in the audit_logs collection. A nil
// collection turns it into a no-op so handlers can be tested without one.
type AuditLogger struct {
	Collection *mongo.Collection
}

func (l *AuditLogger) Log(ctx context.Context, entity, action string, data any) error {
	if l == nil || l.Collection == nil {
		return nil
	}
	performedBy := requestctx.UserIDFromContext(ctx)
	if performedBy == "" {
		performedBy = "system"
	}
	entry := models.AuditLog{
		Timestamp:   time.Now().UTC(),
		Entity:      entity,
		Action:      action,
		PerformedBy: performedBy,
		Data:        data,
	}
	_, err := l.Collection.InsertOne(context.WithoutCancel(ctx), entry)
	if err != nil {
		slog.WarnContext(ctx, "audit log write failed", "entity", entity, "action", action, "error", err)
	}
	return err
}
