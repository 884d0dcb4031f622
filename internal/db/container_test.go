//go:build container

package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"conductor/internal/aimeta"
	"conductor/internal/apperr"
	"conductor/internal/db"
	"conductor/internal/models"
)

func startMongo(t *testing.T, ctx context.Context) *db.Store {
	t.Helper()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	store, err := db.Connect(ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()), "conductor_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestMongoContainer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	store := startMongo(t, ctx)

	require.NoError(t, store.EnsureIndexes(ctx))
	require.NoError(t, store.EnsureIndexes(ctx), "index creation must be repeatable")

	t.Run("bookID is unique", func(t *testing.T) {
		books := store.GetCollection(db.Books)
		book := models.Book{Library: "chem", CoverID: "101", Title: "General Chemistry"}
		book.Normalize()

		_, err := books.InsertOne(ctx, book)
		require.NoError(t, err)
		_, err = books.InsertOne(ctx, book)
		assert.True(t, mongo.IsDuplicateKeyError(err))
	})

	t.Run("one active batch job per project", func(t *testing.T) {
		projects := store.GetCollection(db.Projects)
		_, err := projects.InsertOne(ctx, models.Project{
			ProjectID:       "p1",
			OrgID:           "libretexts",
			Title:           "Chemistry",
			BatchUpdateJobs: []models.BatchJob{},
		})
		require.NoError(t, err)

		jobs := &aimeta.MongoStore{Projects: projects, Metadata: store.GetCollection(db.PageMetadata)}
		first := models.BatchJob{JobID: "j1", Type: models.JobSummaries, Status: models.JobRunning}
		require.NoError(t, jobs.InsertJob(ctx, "p1", first))

		err = jobs.InsertJob(ctx, "p1", models.BatchJob{JobID: "j2", Type: models.JobTags, Status: models.JobPending})
		assert.ErrorIs(t, err, &apperr.Error{Code: apperr.CodeJobActive})

		n, err := jobs.FailStaleJobs(ctx, aimeta.ReasonInterrupted)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		var p models.Project
		require.NoError(t, projects.FindOne(ctx, bson.M{"projectID": "p1"}).Decode(&p))
		require.Len(t, p.BatchUpdateJobs, 1)
		assert.Equal(t, models.JobFailed, p.BatchUpdateJobs[0].Status)
		assert.Equal(t, aimeta.ReasonInterrupted, p.BatchUpdateJobs[0].Error)

		require.NoError(t, jobs.InsertJob(ctx, "p1", models.BatchJob{JobID: "j3", Type: models.JobTags, Status: models.JobPending}))
	})

	t.Run("page metadata upserts", func(t *testing.T) {
		jobs := &aimeta.MongoStore{Projects: store.GetCollection(db.Projects), Metadata: store.GetCollection(db.PageMetadata)}
		meta := models.PageMetadata{BookID: "chem-101", PageID: "7", PageTitle: "Atoms", Summary: "v1"}
		require.NoError(t, jobs.SavePageMetadata(ctx, meta))
		meta.Summary = "v2"
		require.NoError(t, jobs.SavePageMetadata(ctx, meta))

		pages, err := jobs.ListPageMetadata(ctx, "chem-101")
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, "v2", pages[0].Summary)
	})
}
