package db

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexSpec describes the indexes one collection needs.
type IndexSpec struct {
	Collection string
	Models     []mongo.IndexModel
}

func unique(keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
}

// Indexes lists every index the service relies on. The unique indexes back the
// business keys; the books text index backs catalog search.
func Indexes() []IndexSpec {
	return []IndexSpec{
		{Collection: Books, Models: []mongo.IndexModel{
			unique(bson.D{{Key: "bookID", Value: 1}}),
			{Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "author", Value: "text"},
				{Key: "affiliation", Value: "text"},
				{Key: "subject", Value: "text"},
				{Key: "course", Value: "text"},
				{Key: "program", Value: "text"},
				{Key: "summary", Value: "text"},
				{Key: "tags", Value: "text"},
			}, Options: options.Index().SetName("books_text")},
			{Keys: bson.D{{Key: "program", Value: 1}}},
			{Keys: bson.D{{Key: "course", Value: 1}}},
		}},
		{Collection: Organizations, Models: []mongo.IndexModel{unique(bson.D{{Key: "orgID", Value: 1}})}},
		{Collection: Collections, Models: []mongo.IndexModel{
			unique(bson.D{{Key: "collID", Value: 1}}),
			{Keys: bson.D{{Key: "resources.resourceID", Value: 1}}},
		}},
		{Collection: Projects, Models: []mongo.IndexModel{unique(bson.D{{Key: "projectID", Value: 1}})}},
		{Collection: Rubrics, Models: []mongo.IndexModel{
			unique(bson.D{{Key: "rubricID", Value: 1}}),
			{Keys: bson.D{{Key: "orgID", Value: 1}, {Key: "isOrgDefault", Value: 1}}},
		}},
		{Collection: PeerReviews, Models: []mongo.IndexModel{
			unique(bson.D{{Key: "peerReviewID", Value: 1}}),
			{Keys: bson.D{{Key: "projectID", Value: 1}}},
		}},
		{Collection: AdoptionReports, Models: []mongo.IndexModel{
			unique(bson.D{{Key: "reportID", Value: 1}}),
			{Keys: bson.D{{Key: "resource.id", Value: 1}}},
		}},
		{Collection: Courses, Models: []mongo.IndexModel{unique(bson.D{{Key: "courseID", Value: 1}})}},
		{Collection: CIDDescriptors, Models: []mongo.IndexModel{
			unique(bson.D{{Key: "descriptor", Value: 1}}),
			{Keys: bson.D{{Key: "titleCI", Value: 1}}},
		}},
		{Collection: PageMetadata, Models: []mongo.IndexModel{
			unique(bson.D{{Key: "bookID", Value: 1}, {Key: "pageID", Value: 1}}),
		}},
		{Collection: AuditLogs, Models: []mongo.IndexModel{{Keys: bson.D{{Key: "exported", Value: 1}}}}},
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, spec := range Indexes() {
		names, err := s.DB.Collection(spec.Collection).Indexes().CreateMany(ctx, spec.Models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.Collection, err)
		}
		slog.Info("indexes ensured", "collection", spec.Collection, "indexes", names)
	}
	return nil
}
