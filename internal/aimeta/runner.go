package aimeta

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"conductor/internal/apperr"
	"conductor/internal/library"
	"conductor/internal/models"
)

const (
	ReasonInterrupted = "interrupted"
	stateWriteTimeout = 5 * time.Second
)

// PageSource lists a book's pages and returns their text.
type PageSource interface {
	ListPages(ctx context.Context, lib, coverID string) ([]library.Page, error)
	PageContent(ctx context.Context, lib, coverID, pageID string) (library.PageContent, error)
}

// Runner executes batch jobs in background goroutines bound to the lifetime
// context passed to NewRunner. Cancelling it stops every job at the next
// page boundary and records the job as interrupted.
type Runner struct {
	store  JobStore
	pages  PageSource
	gen    Generator
	pacing time.Duration
	logger *slog.Logger

	ctx     context.Context
	wg      sync.WaitGroup
	now     func() time.Time
	sleeper func(context.Context, time.Duration) error
}

type RunnerOption func(*Runner)

func WithPacing(d time.Duration) RunnerOption {
	return func(r *Runner) { r.pacing = d }
}

func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithSleeper overrides the pacing wait, for tests.
func WithSleeper(sleep func(context.Context, time.Duration) error) RunnerOption {
	return func(r *Runner) { r.sleeper = sleep }
}

// NewRunner returns a runner. gen may be nil when no AI provider is
// configured, in which case Start reports the feature as unavailable.
func NewRunner(ctx context.Context, store JobStore, pages PageSource, gen Generator, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:   store,
		pages:   pages,
		gen:     gen,
		pacing:  time.Second,
		logger:  slog.Default(),
		ctx:     ctx,
		now:     func() time.Time { return time.Now().UTC() },
		sleeper: sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start records a pending job on the project and launches it.
func (r *Runner) Start(ctx context.Context, project *models.Project, jobType, ranBy string) (models.BatchJob, error) {
	if r.gen == nil {
		return models.BatchJob{}, apperr.New(apperr.CodeAIUnavailable, "")
	}
	if !models.IsValidJobType(jobType) {
		return models.BatchJob{}, apperr.Newf(apperr.CodeBadRequest, "unknown job type %q", jobType)
	}
	if !project.HasBook() {
		return models.BatchJob{}, apperr.New(apperr.CodeProjectNoBook, "")
	}
	if project.ActiveJob() != nil {
		return models.BatchJob{}, apperr.New(apperr.CodeJobActive, "")
	}
	if r.ctx.Err() != nil {
		return models.BatchJob{}, apperr.New(apperr.CodeAIUnavailable, "server is shutting down")
	}

	job := models.BatchJob{
		JobID:     uuid.NewString(),
		Type:      models.BatchJobType(jobType),
		Status:    models.JobPending,
		RanBy:     ranBy,
		StartedAt: r.now(),
	}
	if err := r.store.InsertJob(ctx, project.ProjectID, job); err != nil {
		return models.BatchJob{}, err
	}

	p := *project
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(p, job)
	}()
	return job, nil
}

// Wait blocks until every started job has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(p models.Project, job models.BatchJob) {
	ctx := r.ctx
	log := r.logger.With("project_id", p.ProjectID, "job_id", job.JobID, "job_type", job.Type)

	job.Status = models.JobRunning
	r.save(p.ProjectID, &job)

	pages, err := r.pages.ListPages(ctx, p.LibreLibrary, p.LibreCoverID)
	if err != nil {
		if ctx.Err() != nil {
			r.finish(p.ProjectID, &job, ReasonInterrupted)
			return
		}
		log.Error("list pages failed", "error", err)
		r.finish(p.ProjectID, &job, fmt.Sprintf("list pages: %v", err))
		return
	}
	job.TotalPages = len(pages)
	r.save(p.ProjectID, &job)
	log.Info("batch job started", "total_pages", job.TotalPages)

	for i, page := range pages {
		if i > 0 {
			if err := r.sleeper(ctx, r.pacing); err != nil {
				r.finish(p.ProjectID, &job, ReasonInterrupted)
				return
			}
		}
		if ctx.Err() != nil {
			r.finish(p.ProjectID, &job, ReasonInterrupted)
			return
		}

		if err := r.processPage(ctx, p, job, page); err != nil {
			if ctx.Err() != nil {
				r.finish(p.ProjectID, &job, ReasonInterrupted)
				return
			}
			job.FailedPages++
			log.Warn("page failed", "page_id", page.ID, "error", err)
		} else {
			job.ProcessedPages++
		}
		r.save(p.ProjectID, &job)
	}

	if job.TotalPages > 0 && job.FailedPages == job.TotalPages {
		r.finish(p.ProjectID, &job, "every page failed")
		return
	}
	r.finish(p.ProjectID, &job, "")
	log.Info("batch job completed", "processed", job.ProcessedPages, "failed", job.FailedPages)
}

// processPage generates and stores metadata for one page. Pages without
// text are skipped.
func (r *Runner) processPage(ctx context.Context, p models.Project, job models.BatchJob, page library.Page) error {
	content, err := r.pages.PageContent(ctx, p.LibreLibrary, p.LibreCoverID, page.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content.Text) == "" {
		return nil
	}
	title := page.Title
	if title == "" {
		title = content.Title
	}
	res, err := r.gen.Generate(ctx, Request{
		PageTitle: title,
		Text:      content.Text,
		Summary:   job.Type.WantsSummaries(),
		Tags:      job.Type.WantsTags(),
	})
	if err != nil {
		return err
	}
	return r.store.SavePageMetadata(ctx, models.PageMetadata{
		BookID:      p.BookID(),
		PageID:      page.ID,
		PageTitle:   title,
		JobID:       job.JobID,
		Summary:     res.Summary,
		Tags:        res.Tags,
		GeneratedAt: r.now(),
	})
}

// finish records a terminal state. An empty reason means success.
func (r *Runner) finish(projectID string, job *models.BatchJob, reason string) {
	ended := r.now()
	job.EndedAt = &ended
	if reason == "" {
		job.Status = models.JobCompleted
	} else {
		job.Status = models.JobFailed
		job.Error = reason
	}
	r.save(projectID, job)
}

// save writes job state on a context detached from the runner so terminal
// states are recorded during shutdown.
func (r *Runner) save(projectID string, job *models.BatchJob) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), stateWriteTimeout)
	defer cancel()
	if err := r.store.UpdateJob(ctx, projectID, *job); err != nil {
		r.logger.Error("save batch job state failed", "project_id", projectID, "job_id", job.JobID, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
