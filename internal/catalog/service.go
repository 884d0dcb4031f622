package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"conductor/internal/apperr"
	"conductor/internal/models"
)

// Page is one page of catalog results.
type Page struct {
	Total int64         `json:"numTotal"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Books []models.Book `json:"books"`
}

// Filters lists the values present for each filterable attribute.
type Filters struct {
	Library     []string `bson:"library" json:"library"`
	Subject     []string `bson:"subject" json:"subject"`
	Author      []string `bson:"author" json:"author"`
	Affiliation []string `bson:"affiliation" json:"affiliation"`
	License     []string `bson:"license" json:"license"`
	Course      []string `bson:"course" json:"course"`
	Program     []string `bson:"program" json:"program"`
}

// Service runs catalog queries against the books and organizations
// collections.
type Service struct {
	Books        *mongo.Collection
	Orgs         *mongo.Collection
	CommonsOrgID string
}

// ResolveOrg loads the organization for orgID. An empty orgID or the
// commons org selects the central catalog and returns central=true.
func (s *Service) ResolveOrg(ctx context.Context, orgID string) (org *models.Organization, central bool, err error) {
	if orgID == "" || orgID == s.CommonsOrgID {
		return nil, true, nil
	}
	var o models.Organization
	if err := s.Orgs.FindOne(ctx, bson.M{"orgID": orgID}).Decode(&o); err != nil {
		return nil, false, apperr.NotFoundOr(err, apperr.CodeOrgNotFound)
	}
	return &o, false, nil
}

func (s *Service) Search(ctx context.Context, orgID string, q Query) (Page, error) {
	result := Page{Page: q.Page, Limit: q.Limit, Books: []models.Book{}}

	org, central, err := s.ResolveOrg(ctx, orgID)
	if err != nil {
		return result, err
	}
	pipeline, ok := BuildPipeline(org, q, central)
	if !ok {
		return result, nil
	}

	cursor, err := s.Books.Aggregate(ctx, pipeline)
	if err != nil {
		return result, fmt.Errorf("catalog aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
		Books []models.Book `bson:"books"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return result, fmt.Errorf("catalog decode: %w", err)
	}
	if len(facets) == 0 {
		return result, nil
	}
	if len(facets[0].Total) > 0 {
		result.Total = facets[0].Total[0].Count
	}
	if facets[0].Books != nil {
		result.Books = facets[0].Books
	}
	return result, nil
}

func (s *Service) Filters(ctx context.Context, orgID string) (Filters, error) {
	var out Filters
	org, central, err := s.ResolveOrg(ctx, orgID)
	if err != nil {
		return out, err
	}
	pipeline, ok := BuildFiltersPipeline(org, central)
	if !ok {
		return out.clean(), nil
	}
	cursor, err := s.Books.Aggregate(ctx, pipeline)
	if err != nil {
		return out, fmt.Errorf("catalog filters aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	if cursor.Next(ctx) {
		if err := cursor.Decode(&out); err != nil {
			return out, fmt.Errorf("catalog filters decode: %w", err)
		}
	}
	if err := cursor.Err(); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return out, err
	}
	return out.clean(), nil
}

// clean drops empty values and sorts each list.
func (f Filters) clean() Filters {
	tidy := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, v := range in {
			if v != "" {
				out = append(out, v)
			}
		}
		sort.Strings(out)
		return out
	}
	return Filters{
		Library:     tidy(f.Library),
		Subject:     tidy(f.Subject),
		Author:      tidy(f.Author),
		Affiliation: tidy(f.Affiliation),
		License:     tidy(f.License),
		Course:      tidy(f.Course),
		Program:     tidy(f.Program),
	}
}
