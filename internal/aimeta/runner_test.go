package aimeta

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/apperr"
	"conductor/internal/library"
	"conductor/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	inserted []models.BatchJob
	states   []models.BatchJob
	metadata []models.PageMetadata
}

func (f *fakeStore) InsertJob(_ context.Context, _ string, job models.BatchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, job)
	return nil
}

func (f *fakeStore) UpdateJob(_ context.Context, _ string, job models.BatchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, job)
	return nil
}

func (f *fakeStore) SavePageMetadata(_ context.Context, meta models.PageMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata = append(f.metadata, meta)
	return nil
}

func (f *fakeStore) last() models.BatchJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[len(f.states)-1]
}

type fakePages struct {
	pages   []library.Page
	text    map[string]string
	listErr error
}

func (f *fakePages) ListPages(context.Context, string, string) ([]library.Page, error) {
	return f.pages, f.listErr
}

func (f *fakePages) PageContent(_ context.Context, _, _, pageID string) (library.PageContent, error) {
	return library.PageContent{ID: pageID, Text: f.text[pageID]}, nil
}

type genFunc func(context.Context, Request) (Result, error)

func (g genFunc) Generate(ctx context.Context, req Request) (Result, error) { return g(ctx, req) }

func okGen(_ context.Context, req Request) (Result, error) {
	return Result{Summary: "about " + req.PageTitle, Tags: []string{"chem"}}, nil
}

func bookProject() *models.Project {
	return &models.Project{ProjectID: "p1", LibreLibrary: "chem", LibreCoverID: "101"}
}

func threePages() *fakePages {
	return &fakePages{
		pages: []library.Page{{ID: "1", Title: "Atoms"}, {ID: "2", Title: "Blank"}, {ID: "3", Title: "Bonds"}},
		text:  map[string]string{"1": "atoms text", "2": "  ", "3": "bonds text"},
	}
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestRunnerCompletesJob(t *testing.T) {
	store := &fakeStore{}
	var waits []time.Duration
	sleeper := func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	r := NewRunner(context.Background(), store, threePages(), genFunc(okGen),
		WithPacing(250*time.Millisecond), WithSleeper(sleeper))

	job, err := r.Start(context.Background(), bookProject(), string(models.JobSummariesAndTags), "u1")
	require.NoError(t, err)
	r.Wait()

	assert.Equal(t, models.JobPending, job.Status)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "u1", store.inserted[0].RanBy)

	final := store.last()
	assert.Equal(t, models.JobCompleted, final.Status)
	assert.Equal(t, 3, final.TotalPages)
	assert.Equal(t, 3, final.ProcessedPages)
	assert.Equal(t, 0, final.FailedPages)
	assert.NotNil(t, final.EndedAt)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, waits)

	require.Len(t, store.metadata, 2)
	assert.Equal(t, "chem-101", store.metadata[0].BookID)
	assert.Equal(t, "about Atoms", store.metadata[0].Summary)
	assert.Equal(t, job.JobID, store.metadata[1].JobID)
}

func TestRunnerPageFailures(t *testing.T) {
	t.Run("some pages fail", func(t *testing.T) {
		store := &fakeStore{}
		gen := genFunc(func(ctx context.Context, req Request) (Result, error) {
			if req.PageTitle == "Bonds" {
				return Result{}, errors.New("rate limited")
			}
			return okGen(ctx, req)
		})
		r := NewRunner(context.Background(), store, threePages(), gen, WithSleeper(noSleep))
		_, err := r.Start(context.Background(), bookProject(), string(models.JobTags), "u1")
		require.NoError(t, err)
		r.Wait()

		final := store.last()
		assert.Equal(t, models.JobCompleted, final.Status)
		assert.Equal(t, 2, final.ProcessedPages)
		assert.Equal(t, 1, final.FailedPages)
	})

	t.Run("every page fails", func(t *testing.T) {
		store := &fakeStore{}
		pages := &fakePages{pages: []library.Page{{ID: "1"}, {ID: "2"}}, text: map[string]string{"1": "a", "2": "b"}}
		gen := genFunc(func(context.Context, Request) (Result, error) { return Result{}, errors.New("down") })
		r := NewRunner(context.Background(), store, pages, gen, WithSleeper(noSleep))
		_, err := r.Start(context.Background(), bookProject(), string(models.JobSummaries), "u1")
		require.NoError(t, err)
		r.Wait()

		final := store.last()
		assert.Equal(t, models.JobFailed, final.Status)
		assert.Equal(t, "every page failed", final.Error)
		assert.Equal(t, 2, final.FailedPages)
	})

	t.Run("listing fails", func(t *testing.T) {
		store := &fakeStore{}
		pages := &fakePages{listErr: errors.New("502")}
		r := NewRunner(context.Background(), store, pages, genFunc(okGen), WithSleeper(noSleep))
		_, err := r.Start(context.Background(), bookProject(), string(models.JobSummaries), "u1")
		require.NoError(t, err)
		r.Wait()

		final := store.last()
		assert.Equal(t, models.JobFailed, final.Status)
		assert.Contains(t, final.Error, "list pages")
	})
}

func TestRunnerInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &fakeStore{}
	sleeper := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	r := NewRunner(ctx, store, threePages(), genFunc(okGen), WithSleeper(sleeper))
	_, err := r.Start(context.Background(), bookProject(), string(models.JobSummaries), "u1")
	require.NoError(t, err)
	r.Wait()

	final := store.last()
	assert.Equal(t, models.JobFailed, final.Status)
	assert.Equal(t, ReasonInterrupted, final.Error)
	assert.Equal(t, 1, final.ProcessedPages)
}

func TestRunnerStartValidation(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}

	_, err := NewRunner(ctx, store, threePages(), nil).Start(ctx, bookProject(), string(models.JobTags), "u1")
	assert.ErrorIs(t, err, &apperr.Error{Code: apperr.CodeAIUnavailable})

	r := NewRunner(ctx, store, threePages(), genFunc(okGen))

	_, err = r.Start(ctx, bookProject(), "titles", "u1")
	assert.ErrorIs(t, err, &apperr.Error{Code: apperr.CodeBadRequest})

	_, err = r.Start(ctx, &models.Project{ProjectID: "p2"}, string(models.JobTags), "u1")
	assert.ErrorIs(t, err, &apperr.Error{Code: apperr.CodeProjectNoBook})

	busy := bookProject()
	busy.BatchUpdateJobs = []models.BatchJob{{JobID: "j0", Status: models.JobRunning}}
	_, err = r.Start(ctx, busy, string(models.JobTags), "u1")
	assert.ErrorIs(t, err, &apperr.Error{Code: apperr.CodeJobActive})

	assert.Empty(t, store.inserted)
}
