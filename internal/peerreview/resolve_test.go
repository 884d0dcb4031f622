package peerreview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/models"
)

type fakeStore struct {
	byID       map[string]models.PeerReviewRubric
	orgDefault map[string]models.PeerReviewRubric
	err        error
}

func (f *fakeStore) RubricByID(_ context.Context, id string) (*models.PeerReviewRubric, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.byID[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeStore) OrgDefaultRubric(_ context.Context, orgID string) (*models.PeerReviewRubric, error) {
	if r, ok := f.orgDefault[orgID]; ok {
		return &r, nil
	}
	return nil, nil
}

func TestResolve(t *testing.T) {
	store := &fakeStore{
		byID:       map[string]models.PeerReviewRubric{"proj-rubric": {RubricID: "proj-rubric"}},
		orgDefault: map[string]models.PeerReviewRubric{"org1": {RubricID: "org-rubric"}},
	}
	resolver := &Resolver{Store: store, System: DefaultRubric()}
	ctx := context.Background()

	tests := []struct {
		name       string
		project    models.Project
		wantID     string
		wantSource Source
	}{
		{"project preference", models.Project{OrgID: "org1", PreferredPRRubric: "proj-rubric"}, "proj-rubric", SourceProject},
		{"deleted preference falls back to org", models.Project{OrgID: "org1", PreferredPRRubric: "gone"}, "org-rubric", SourceOrganization},
		{"org default", models.Project{OrgID: "org1"}, "org-rubric", SourceOrganization},
		{"system default", models.Project{OrgID: "org2"}, SystemRubricID, SourceSystem},
		{"no org", models.Project{}, SystemRubricID, SourceSystem},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, source, err := resolver.Resolve(ctx, &tc.project)
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, r.RubricID)
			assert.Equal(t, tc.wantSource, source)
		})
	}
}

func TestResolveStoreError(t *testing.T) {
	boom := errors.New("boom")
	resolver := &Resolver{Store: &fakeStore{err: boom}, System: DefaultRubric()}

	_, _, err := resolver.Resolve(context.Background(), &models.Project{PreferredPRRubric: "x"})
	assert.ErrorIs(t, err, boom)
}
