package daemon

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conductor/internal/models"
)

const exportBatchSize = 500

// AuditExporter drains unexported audit records into the structured log and
// marks them exported.
type AuditExporter struct {
	Coll     *mongo.Collection
	Logger   *slog.Logger
	Interval time.Duration
}

// Run exports on every tick until ctx is cancelled.
func (e *AuditExporter) Run(ctx context.Context) {
	interval := e.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := e.ExportOnce(ctx); err != nil && ctx.Err() == nil {
			e.Logger.Warn("audit export failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExportOnce exports one batch and returns how many records it marked.
func (e *AuditExporter) ExportOnce(ctx context.Context) (int, error) {
	cursor, err := e.Coll.Find(ctx, bson.M{"exported": false},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}).SetLimit(exportBatchSize))
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var logs []models.AuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return 0, err
	}
	if len(logs) == 0 {
		return 0, nil
	}

	ids := make([]primitive.ObjectID, 0, len(logs))
	for _, l := range logs {
		e.Logger.Info("audit",
			"entity", l.Entity,
			"action", l.Action,
			"performed_by", l.PerformedBy,
			"timestamp", l.Timestamp,
			"data", l.Data,
		)
		ids = append(ids, l.ID)
	}

	_, err = e.Coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": bson.M{"exported": true}})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
