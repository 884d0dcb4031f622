package aimeta

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conductor/internal/apperr"
	"conductor/internal/models"
)

// JobStore persists job state and generated metadata.
type JobStore interface {
	InsertJob(ctx context.Context, projectID string, job models.BatchJob) error
	UpdateJob(ctx context.Context, projectID string, job models.BatchJob) error
	SavePageMetadata(ctx context.Context, meta models.PageMetadata) error
}

var activeStatuses = bson.A{models.JobPending, models.JobRunning}

// MongoStore keeps jobs inside each project's batchUpdateJobs array.
type MongoStore struct {
	Projects *mongo.Collection
	Metadata *mongo.Collection
}

// InsertJob appends a job unless the project already has an active one.
func (s *MongoStore) InsertJob(ctx context.Context, projectID string, job models.BatchJob) error {
	res, err := s.Projects.UpdateOne(ctx,
		bson.M{
			"projectID":       projectID,
			"batchUpdateJobs": bson.M{"$not": bson.M{"$elemMatch": bson.M{"status": bson.M{"$in": activeStatuses}}}},
		},
		bson.M{"$push": bson.M{"batchUpdateJobs": job}},
	)
	if err != nil {
		return fmt.Errorf("insert batch job: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.CodeJobActive, "")
	}
	return nil
}

func (s *MongoStore) UpdateJob(ctx context.Context, projectID string, job models.BatchJob) error {
	_, err := s.Projects.UpdateOne(ctx,
		bson.M{"projectID": projectID, "batchUpdateJobs.jobID": job.JobID},
		bson.M{"$set": bson.M{"batchUpdateJobs.$": job}},
	)
	if err != nil {
		return fmt.Errorf("update batch job %s: %w", job.JobID, err)
	}
	return nil
}

func (s *MongoStore) SavePageMetadata(ctx context.Context, meta models.PageMetadata) error {
	_, err := s.Metadata.UpdateOne(ctx,
		bson.M{"bookID": meta.BookID, "pageID": meta.PageID},
		bson.M{"$set": meta},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save page metadata %s: %w", meta.PageID, err)
	}
	return nil
}

func (s *MongoStore) ListPageMetadata(ctx context.Context, bookID string) ([]models.PageMetadata, error) {
	cursor, err := s.Metadata.Find(ctx, bson.M{"bookID": bookID},
		options.Find().SetSort(bson.D{{Key: "pageTitle", Value: 1}, {Key: "pageID", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find page metadata: %w", err)
	}
	defer cursor.Close(ctx)
	out := []models.PageMetadata{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode page metadata: %w", err)
	}
	return out, nil
}

// FailStaleJobs marks every pending or running job as failed. Only call it
// before any runner has started.
func (s *MongoStore) FailStaleJobs(ctx context.Context, reason string) (int64, error) {
	res, err := s.Projects.UpdateMany(ctx,
		bson.M{"batchUpdateJobs.status": bson.M{"$in": activeStatuses}},
		bson.M{"$set": bson.M{
			"batchUpdateJobs.$[j].status":  models.JobFailed,
			"batchUpdateJobs.$[j].error":   reason,
			"batchUpdateJobs.$[j].endedAt": time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"j.status": bson.M{"$in": activeStatuses}}},
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return res.ModifiedCount, nil
}
