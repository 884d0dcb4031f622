package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"conductor/internal/handlers"
)

func statsHandler(mt *mtest.T) *handlers.StatsHandler {
	return &handlers.StatsHandler{
		BookCol:       mt.Coll,
		CollectionCol: mt.Coll,
		AdoptionCol:   mt.Coll,
		ReviewCol:     mt.Coll,
		OrgCol:        mt.Coll,
	}
}

func TestStatsHandler_Collect(t *testing.T) {
	mt := newMock(t)

	mt.Run("counts", func(mt *mtest.T) {
		mt.AddMockResponses(
			countResponse("test.books", 120),
			countResponse("test.collections", 8),
			countResponse("test.adoptionreports", 31),
			countResponse("test.peerreviews", 12),
			countResponse("test.books", 5),
			countResponse("test.organizations", 3),
		)
		stats, err := statsHandler(mt).Collect(context.Background())

		require.NoError(t, err)
		assert.Equal(t, handlers.Stats{
			Books: 120, Collections: 8, AdoptionReports: 31,
			PeerReviews: 12, ReviewedBooks: 5, Orgs: 3,
		}, stats)
	})

	mt.Run("count failure", func(mt *mtest.T) {
		mt.AddMockResponses(
			countResponse("test.books", 1),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 8000, Message: "boom"}),
		)
		_, err := statsHandler(mt).Collect(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "count collections")
	})
}

func TestStatsHandler_GetStats(t *testing.T) {
	mt := newMock(t)

	mt.Run("empty deployment", func(mt *mtest.T) {
		for i := 0; i < 6; i++ {
			mt.AddMockResponses(countResponse("test.x", 0))
		}
		r := mux.NewRouter()
		r.HandleFunc("/commons/stats", statsHandler(mt).GetStats).Methods(http.MethodGet)

		w := serve(r, http.MethodGet, "/commons/stats", nil)

		require.Equal(t, http.StatusOK, w.Code)
		stats := decodeBody(t, w)["stats"].(map[string]any)
		assert.Equal(t, float64(0), stats["books"])
	})
}
