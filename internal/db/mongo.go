package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Collection names.
const (
	Books           = "books"
	Organizations   = "organizations"
	Collections     = "collections"
	Projects        = "projects"
	Rubrics         = "peerreviewrubrics"
	PeerReviews     = "peerreviews"
	AdoptionReports = "adoptionreports"
	Courses         = "analyticscourses"
	CIDDescriptors  = "ciddescriptors"
	PageMetadata    = "pagemetadata"
	AuditLogs       = "audit_logs"
)

type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials MongoDB and verifies the deployment is reachable.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	slog.Info("connected to mongodb", "db", dbName)
	return &Store{Client: client, DB: client.Database(dbName)}, nil
}

func (s *Store) GetCollection(name string) *mongo.Collection {
	return s.DB.Collection(name)
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}
