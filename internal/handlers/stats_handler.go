package handlers

import (
	"context"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"conductor/internal/models"
	"conductor/internal/utils"
)

type Stats struct {
	Books           int64 `json:"books"`
	Collections     int64 `json:"collections"`
	AdoptionReports int64 `json:"adoptionReports"`
	PeerReviews     int64 `json:"peerReviews"`
	ReviewedBooks   int64 `json:"reviewedBooks"`
	Orgs            int64 `json:"orgs"`
}

type StatsHandler struct {
	BookCol       *mongo.Collection
	CollectionCol *mongo.Collection
	AdoptionCol   *mongo.Collection
	ReviewCol     *mongo.Collection
	OrgCol        *mongo.Collection
}

// Collect counts the Commons totals. Only public collections are counted.
func (h *StatsHandler) Collect(ctx context.Context) (Stats, error) {
	var s Stats
	counts := []struct {
		name   string
		coll   *mongo.Collection
		filter bson.M
		dst    *int64
	}{
		{"books", h.BookCol, bson.M{}, &s.Books},
		{"collections", h.CollectionCol, bson.M{"privacy": models.PrivacyPublic}, &s.Collections},
		{"adoption reports", h.AdoptionCol, bson.M{}, &s.AdoptionReports},
		{"peer reviews", h.ReviewCol, bson.M{}, &s.PeerReviews},
		{"reviewed books", h.BookCol, bson.M{"hasPeerReviews": true}, &s.ReviewedBooks},
		{"organizations", h.OrgCol, bson.M{}, &s.Orgs},
	}
	for _, c := range counts {
		n, err := c.coll.CountDocuments(ctx, c.filter)
		if err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.name, err)
		}
		*c.dst = n
	}
	return s, nil
}

// GET /commons/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	stats, err := h.Collect(ctx)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"stats": stats})
}
