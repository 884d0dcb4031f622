package peerreview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conductor/internal/apperr"
	"conductor/internal/models"
)

// Service stores rubrics and reviews and keeps project and book ratings in
// step with the reviews on file.
type Service struct {
	Rubrics  *mongo.Collection
	Reviews  *mongo.Collection
	Projects *mongo.Collection
	Books    *mongo.Collection
	Orgs     *mongo.Collection
	Resolver *Resolver
}

func (s *Service) ListRubrics(ctx context.Context, orgID string) ([]models.PeerReviewRubric, error) {
	filter := bson.M{}
	if orgID != "" {
		filter["orgID"] = orgID
	}
	cursor, err := s.Rubrics.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "rubricTitle", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find rubrics: %w", err)
	}
	defer cursor.Close(ctx)
	out := []models.PeerReviewRubric{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode rubrics: %w", err)
	}
	return out, nil
}

func (s *Service) GetRubric(ctx context.Context, rubricID string) (*models.PeerReviewRubric, error) {
	var r models.PeerReviewRubric
	if err := s.Rubrics.FindOne(ctx, bson.M{"rubricID": rubricID}).Decode(&r); err != nil {
		return nil, apperr.NotFoundOr(err, apperr.CodeRubricNotFound)
	}
	return &r, nil
}

func (s *Service) CreateRubric(ctx context.Context, r *models.PeerReviewRubric) error {
	r.OrgID = strings.TrimSpace(r.OrgID)
	if r.OrgID == "" {
		return apperr.New(apperr.CodeMissingField, "orgID is required")
	}
	if err := ValidateRubric(r); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.RubricID = uuid.NewString()
	r.CreatedAt, r.UpdatedAt = now, now
	if r.Headings == nil {
		r.Headings = []models.RubricHeading{}
	}

	if r.IsOrgDefault {
		if err := s.clearOrgDefault(ctx, r.OrgID); err != nil {
			return err
		}
	}
	if _, err := s.Rubrics.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert rubric: %w", err)
	}
	if r.IsOrgDefault {
		return s.setOrgDefault(ctx, r.OrgID, r.RubricID)
	}
	return nil
}

// UpdateRubric replaces the editable content of a rubric. Reviews keep the
// rubric title they were submitted against.
func (s *Service) UpdateRubric(ctx context.Context, rubricID string, in *models.PeerReviewRubric) (*models.PeerReviewRubric, error) {
	current, err := s.GetRubric(ctx, rubricID)
	if err != nil {
		return nil, err
	}
	in.OrgID = current.OrgID
	if err := ValidateRubric(in); err != nil {
		return nil, err
	}
	if in.Headings == nil {
		in.Headings = []models.RubricHeading{}
	}
	if in.IsOrgDefault && !current.IsOrgDefault {
		if err := s.clearOrgDefault(ctx, current.OrgID); err != nil {
			return nil, err
		}
	}

	var updated models.PeerReviewRubric
	err = s.Rubrics.FindOneAndUpdate(ctx, bson.M{"rubricID": rubricID},
		bson.M{"$set": bson.M{
			"rubricTitle":  in.RubricTitle,
			"headings":     in.Headings,
			"prompts":      in.Prompts,
			"isOrgDefault": in.IsOrgDefault,
			"updatedAt":    time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		return nil, apperr.NotFoundOr(err, apperr.CodeRubricNotFound)
	}

	switch {
	case in.IsOrgDefault && !current.IsOrgDefault:
		err = s.setOrgDefault(ctx, current.OrgID, rubricID)
	case !in.IsOrgDefault && current.IsOrgDefault:
		err = s.unsetOrgDefault(ctx, rubricID)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRubric removes a rubric and clears it wherever it was an
// organization default. Projects that preferred it fall back along the
// resolution chain.
func (s *Service) DeleteRubric(ctx context.Context, rubricID string) error {
	res, err := s.Rubrics.DeleteOne(ctx, bson.M{"rubricID": rubricID})
	if err != nil {
		return fmt.Errorf("delete rubric: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.CodeRubricNotFound, "")
	}
	return s.unsetOrgDefault(ctx, rubricID)
}

func (s *Service) clearOrgDefault(ctx context.Context, orgID string) error {
	_, err := s.Rubrics.UpdateMany(ctx,
		bson.M{"orgID": orgID, "isOrgDefault": true},
		bson.M{"$set": bson.M{"isOrgDefault": false}})
	if err != nil {
		return fmt.Errorf("clear org default rubric: %w", err)
	}
	return nil
}

func (s *Service) setOrgDefault(ctx context.Context, orgID, rubricID string) error {
	_, err := s.Orgs.UpdateOne(ctx, bson.M{"orgID": orgID},
		bson.M{"$set": bson.M{"defaultRubricID": rubricID, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("set org default rubric: %w", err)
	}
	return nil
}

func (s *Service) unsetOrgDefault(ctx context.Context, rubricID string) error {
	_, err := s.Orgs.UpdateMany(ctx, bson.M{"defaultRubricID": rubricID},
		bson.M{"$unset": bson.M{"defaultRubricID": ""}})
	if err != nil {
		return fmt.Errorf("unset org default rubric: %w", err)
	}
	return nil
}

func (s *Service) project(ctx context.Context, projectID string) (*models.Project, error) {
	var p models.Project
	if err := s.Projects.FindOne(ctx, bson.M{"projectID": projectID}).Decode(&p); err != nil {
		return nil, apperr.NotFoundOr(err, apperr.CodeProjectNotFound)
	}
	return &p, nil
}

// ProjectRubric resolves the rubric a project's reviews are answered against.
func (s *Service) ProjectRubric(ctx context.Context, projectID string) (models.PeerReviewRubric, Source, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return models.PeerReviewRubric{}, "", err
	}
	return s.Resolver.Resolve(ctx, p)
}

// Submit validates a review against the project's resolved rubric, stores it
// and refreshes the project rating.
func (s *Service) Submit(ctx context.Context, projectID string, review *models.PeerReview) error {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return err
	}
	rubric, _, err := s.Resolver.Resolve(ctx, p)
	if err != nil {
		return err
	}
	if err := ValidateReview(review, rubric, p); err != nil {
		return err
	}

	review.PeerReviewID = uuid.NewString()
	review.ProjectID = projectID
	review.CreatedAt = time.Now().UTC()
	if _, err := s.Reviews.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("insert peer review: %w", err)
	}
	return s.refreshRating(ctx, p)
}

// ListReviews returns a project's reviews, newest first, with anonymous
// authors redacted.
func (s *Service) ListReviews(ctx context.Context, projectID string) ([]models.PeerReview, error) {
	cursor, err := s.Reviews.Find(ctx, bson.M{"projectID": projectID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find peer reviews: %w", err)
	}
	defer cursor.Close(ctx)
	var found []models.PeerReview
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decode peer reviews: %w", err)
	}
	out := make([]models.PeerReview, 0, len(found))
	for _, r := range found {
		out = append(out, r.Redacted())
	}
	return out, nil
}

func (s *Service) GetReview(ctx context.Context, peerReviewID string) (*models.PeerReview, error) {
	var r models.PeerReview
	if err := s.Reviews.FindOne(ctx, bson.M{"peerReviewID": peerReviewID}).Decode(&r); err != nil {
		return nil, apperr.NotFoundOr(err, apperr.CodeReviewNotFound)
	}
	r = r.Redacted()
	return &r, nil
}

func (s *Service) DeleteReview(ctx context.Context, peerReviewID string) error {
	var r models.PeerReview
	if err := s.Reviews.FindOneAndDelete(ctx, bson.M{"peerReviewID": peerReviewID}).Decode(&r); err != nil {
		return apperr.NotFoundOr(err, apperr.CodeReviewNotFound)
	}
	p, err := s.project(ctx, r.ProjectID)
	if err != nil {
		if apperr.From(err).Code == apperr.CodeProjectNotFound {
			return nil
		}
		return err
	}
	return s.refreshRating(ctx, p)
}

func (s *Service) refreshRating(ctx context.Context, p *models.Project) error {
	cursor, err := s.Reviews.Find(ctx, bson.M{"projectID": p.ProjectID},
		options.Find().SetProjection(bson.M{"rating": 1}))
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	defer cursor.Close(ctx)
	var reviews []models.PeerReview
	if err := cursor.All(ctx, &reviews); err != nil {
		return fmt.Errorf("decode ratings: %w", err)
	}
	ratings := make([]float64, len(reviews))
	for i, r := range reviews {
		ratings[i] = r.Rating
	}
	rating := MeanRating(ratings)

	_, err = s.Projects.UpdateOne(ctx, bson.M{"projectID": p.ProjectID},
		bson.M{"$set": bson.M{"rating": rating, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("update project rating: %w", err)
	}
	if !p.HasBook() {
		return nil
	}
	_, err = s.Books.UpdateOne(ctx, bson.M{"bookID": p.BookID()},
		bson.M{"$set": bson.M{"hasPeerReviews": len(ratings) > 0, "rating": rating}})
	if err != nil {
		return fmt.Errorf("update book rating: %w", err)
	}
	return nil
}
