package peerreview

import (
	"context"
	"fmt"

	"conductor/internal/models"
)

// Source names the step of the chain that produced a rubric.
type Source string

const (
	SourceProject      Source = "project"
	SourceOrganization Source = "organization"
	SourceSystem       Source = "system"
)

// RubricStore looks rubrics up. Both methods return (nil, nil) when nothing
// is found.
type RubricStore interface {
	RubricByID(ctx context.Context, rubricID string) (*models.PeerReviewRubric, error)
	OrgDefaultRubric(ctx context.Context, orgID string) (*models.PeerReviewRubric, error)
}

type Resolver struct {
	Store  RubricStore
	System models.PeerReviewRubric
}

// Resolve picks the rubric for a project: the project's preferred rubric,
// then its organization's default, then the system rubric. A preferred
// rubric that has since been deleted falls through to the next step.
func (r *Resolver) Resolve(ctx context.Context, project *models.Project) (models.PeerReviewRubric, Source, error) {
	if project.PreferredPRRubric != "" {
		rubric, err := r.Store.RubricByID(ctx, project.PreferredPRRubric)
		if err != nil {
			return models.PeerReviewRubric{}, "", fmt.Errorf("load preferred rubric: %w", err)
		}
		if rubric != nil {
			return *rubric, SourceProject, nil
		}
	}
	if project.OrgID != "" {
		rubric, err := r.Store.OrgDefaultRubric(ctx, project.OrgID)
		if err != nil {
			return models.PeerReviewRubric{}, "", fmt.Errorf("load org default rubric: %w", err)
		}
		if rubric != nil {
			return *rubric, SourceOrganization, nil
		}
	}
	return r.System, SourceSystem, nil
}
