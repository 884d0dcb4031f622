package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"conductor/configs"
	"conductor/internal/aimeta"
	"conductor/internal/catalog"
	"conductor/internal/collections"
	"conductor/internal/daemon"
	"conductor/internal/db"
	"conductor/internal/handlers"
	"conductor/internal/library"
	"conductor/internal/middleware"
	"conductor/internal/models"
	"conductor/internal/peerreview"
	"conductor/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			logger, err := ctx.log()
			if err != nil {
				return err
			}
			lifetime, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := ctx.store(lifetime)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = store.Close(closeCtx)
			}()
			return serve(lifetime, cfg, store, logger)
		},
	}
}

func systemRubric(cfg configs.Config) (models.PeerReviewRubric, error) {
	if cfg.DefaultRubricFile == "" {
		return peerreview.DefaultRubric(), nil
	}
	return peerreview.LoadRubricFile(cfg.DefaultRubricFile)
}

func serve(ctx context.Context, cfg configs.Config, store *db.Store, logger *slog.Logger) error {
	utils.InitJwtSecret(cfg.JWTSecret)
	handlers.RequestTimeout = cfg.RequestTimeout

	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	jobStore := &aimeta.MongoStore{
		Projects: store.GetCollection(db.Projects),
		Metadata: store.GetCollection(db.PageMetadata),
	}
	if err := daemon.RecoverJobs(ctx, jobStore, logger); err != nil {
		return fmt.Errorf("recover batch jobs: %w", err)
	}

	rubric, err := systemRubric(cfg)
	if err != nil {
		return err
	}

	var gen aimeta.Generator
	if cfg.OpenAIAPIKey != "" {
		gen = aimeta.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		logger.Warn("OPENAI_API_KEY not set, AI metadata jobs are disabled")
	}
	runner := aimeta.NewRunner(ctx, jobStore, library.NewClient(cfg.LibraryAPIBase), gen,
		aimeta.WithPacing(cfg.AIPacingDelay),
		aimeta.WithLogger(logger.With("component", "aimeta")),
	)

	auditCol := store.GetCollection(db.AuditLogs)
	auditLogger := &utils.AuditLogger{Collection: auditCol}
	exporter := &daemon.AuditExporter{
		Coll:     auditCol,
		Logger:   logger.With("component", "audit-exporter"),
		Interval: cfg.AuditExportInterval,
	}
	go exporter.Run(ctx)

	books := store.GetCollection(db.Books)
	orgs := store.GetCollection(db.Organizations)
	colls := store.GetCollection(db.Collections)
	projects := store.GetCollection(db.Projects)
	adoptions := store.GetCollection(db.AdoptionReports)
	reviews := store.GetCollection(db.PeerReviews)
	rubrics := store.GetCollection(db.Rubrics)

	collSvc := &collections.Service{Colls: colls, Books: books}
	h := &handlers.Handlers{
		Books: &handlers.BookHandler{
			Catalog:     &catalog.Service{Books: books, Orgs: orgs, CommonsOrgID: cfg.CommonsOrgID},
			Collections: collSvc,
			BookCol:     books,
			OrgCol:      orgs,
			AdoptionCol: adoptions,
			AuditLogger: auditLogger,
		},
		Collections: &handlers.CollectionHandler{Service: collSvc, AuditLogger: auditLogger},
		PeerReviews: &handlers.PeerReviewHandler{
			Service: &peerreview.Service{
				Rubrics:  rubrics,
				Reviews:  reviews,
				Projects: projects,
				Books:    books,
				Orgs:     orgs,
				Resolver: &peerreview.Resolver{
					Store:  &peerreview.MongoStore{Rubrics: rubrics, Orgs: orgs},
					System: rubric,
				},
			},
			AuditLogger: auditLogger,
		},
		Projects: &handlers.ProjectHandler{
			ProjectCol:  projects,
			Runner:      runner,
			Metadata:    jobStore,
			AuditLogger: auditLogger,
		},
		Adoptions: &handlers.AdoptionHandler{AdoptionCol: adoptions, BookCol: books, AuditLogger: auditLogger},
		Analytics: &handlers.AnalyticsHandler{
			CourseCol:   store.GetCollection(db.Courses),
			BookCol:     books,
			AuditLogger: auditLogger,
		},
		CIDs:  &handlers.CIDHandler{CIDCol: store.GetCollection(db.CIDDescriptors), AuditLogger: auditLogger},
		Stats: statsHandler(store),
	}

	r := mux.NewRouter()
	r.Use(middleware.Recoverer(logger), middleware.RequestLogger(logger))
	h.Register(r)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	runner.Wait()
	logger.Info("server shut down")
	return nil
}

func statsHandler(store *db.Store) *handlers.StatsHandler {
	return &handlers.StatsHandler{
		BookCol:       store.GetCollection(db.Books),
		CollectionCol: store.GetCollection(db.Collections),
		AdoptionCol:   store.GetCollection(db.AdoptionReports),
		ReviewCol:     store.GetCollection(db.PeerReviews),
		OrgCol:        store.GetCollection(db.Organizations),
	}
}
