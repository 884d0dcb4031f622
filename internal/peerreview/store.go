package peerreview

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conductor/internal/models"
)

// MongoStore implements RubricStore over the rubric and organization
// collections.
type MongoStore struct {
	Rubrics *mongo.Collection
	Orgs    *mongo.Collection
}

func (s *MongoStore) RubricByID(ctx context.Context, rubricID string) (*models.PeerReviewRubric, error) {
	return s.findRubric(ctx, bson.M{"rubricID": rubricID})
}

// OrgDefaultRubric prefers the organization's defaultRubricID and falls back
// to a rubric flagged isOrgDefault.
func (s *MongoStore) OrgDefaultRubric(ctx context.Context, orgID string) (*models.PeerReviewRubric, error) {
	var org models.Organization
	err := s.Orgs.FindOne(ctx, bson.M{"orgID": orgID},
		options.FindOne().SetProjection(bson.M{"defaultRubricID": 1})).Decode(&org)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	if org.DefaultRubricID != "" {
		r, err := s.RubricByID(ctx, org.DefaultRubricID)
		if err != nil || r != nil {
			return r, err
		}
	}
	return s.findRubric(ctx, bson.M{"orgID": orgID, "isOrgDefault": true})
}

func (s *MongoStore) findRubric(ctx context.Context, filter bson.M) (*models.PeerReviewRubric, error) {
	var r models.PeerReviewRubric
	err := s.Rubrics.FindOne(ctx, filter).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
