package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"conductor/internal/handlers"
)

func analyticsRouter(mt *mtest.T) *mux.Router {
	h := &handlers.AnalyticsHandler{CourseCol: mt.Coll, BookCol: mt.Coll}
	r := mux.NewRouter()
	r.HandleFunc("/analytics/courses", h.CreateCourse).Methods(http.MethodPost)
	r.HandleFunc("/analytics/courses/{courseID}/textbook", h.RequestTextbook).Methods(http.MethodPut)
	r.HandleFunc("/analytics/courses/{courseID}/textbook/review", h.ReviewTextbook).Methods(http.MethodPut)
	return r
}

func courseDoc(status, pending string) bson.D {
	doc := bson.D{
		{Key: "courseID", Value: "c1"},
		{Key: "orgID", Value: "libretexts"},
		{Key: "title", Value: "CHEM 1A"},
		{Key: "textbookStatus", Value: status},
	}
	if pending != "" {
		doc = append(doc, bson.E{Key: "pendingTextbookID", Value: pending})
	}
	return doc
}

func TestAnalyticsHandler_CreateCourse(t *testing.T) {
	mt := newMock(t)

	mt.Run("end before start", func(mt *mtest.T) {
		w := serve(analyticsRouter(mt), http.MethodPost, "/analytics/courses", map[string]any{
			"title":     "CHEM 1A",
			"orgID":     "libretexts",
			"startDate": "2024-12-01T00:00:00Z",
			"endDate":   "2024-08-20T00:00:00Z",
		})
		requireErrCode(t, w, http.StatusBadRequest, "invalid_date_range")
	})

	mt.Run("missing dates", func(mt *mtest.T) {
		w := serve(analyticsRouter(mt), http.MethodPost, "/analytics/courses",
			map[string]any{"title": "CHEM 1A", "orgID": "libretexts"})
		requireErrCode(t, w, http.StatusBadRequest, "err7")
	})

	mt.Run("creates with no textbook", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		w := serve(analyticsRouter(mt), http.MethodPost, "/analytics/courses", map[string]any{
			"title":     "CHEM 1A",
			"orgID":     "libretexts",
			"startDate": "2024-08-20T00:00:00Z",
			"endDate":   "2024-12-01T00:00:00Z",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		course := decodeBody(t, w)["course"].(map[string]any)
		assert.NotEmpty(t, course["courseID"])
		assert.Equal(t, "none", course["textbookStatus"])
	})
}

func TestAnalyticsHandler_RequestTextbook(t *testing.T) {
	mt := newMock(t)

	mt.Run("unknown book", func(mt *mtest.T) {
		mt.AddMockResponses(countResponse("test.books", 0))
		w := serve(analyticsRouter(mt), http.MethodPut, "/analytics/courses/c1/textbook", map[string]any{"bookID": "chem-404"})
		requireErrCode(t, w, http.StatusNotFound, "book_not_found")
	})

	mt.Run("marks pending", func(mt *mtest.T) {
		mt.AddMockResponses(countResponse("test.books", 1), findAndModify(courseDoc("pending", "chem-101")))
		w := serve(analyticsRouter(mt), http.MethodPut, "/analytics/courses/c1/textbook", map[string]any{"bookID": "chem-101"})

		require.Equal(t, http.StatusOK, w.Code)
		course := decodeBody(t, w)["course"].(map[string]any)
		assert.Equal(t, "pending", course["textbookStatus"])
		assert.Equal(t, "chem-101", course["pendingTextbookID"])
	})
}

func TestAnalyticsHandler_ReviewTextbook(t *testing.T) {
	mt := newMock(t)

	mt.Run("approve is required", func(mt *mtest.T) {
		w := serve(analyticsRouter(mt), http.MethodPut, "/analytics/courses/c1/textbook/review", map[string]any{})
		requireErrCode(t, w, http.StatusBadRequest, "err7")
	})

	mt.Run("nothing pending", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.courses", mtest.FirstBatch, courseDoc("none", "")))
		w := serve(analyticsRouter(mt), http.MethodPut, "/analytics/courses/c1/textbook/review", map[string]any{"approve": true})
		requireErrCode(t, w, http.StatusConflict, "course_nothing_pending")
	})

	mt.Run("approves pending request", func(mt *mtest.T) {
		approved := courseDoc("approved", "")
		approved = append(approved, bson.E{Key: "textbookID", Value: "chem-101"})
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.courses", mtest.FirstBatch, courseDoc("pending", "chem-101")),
			findAndModify(approved),
		)
		w := serve(analyticsRouter(mt), http.MethodPut, "/analytics/courses/c1/textbook/review", map[string]any{"approve": true})

		require.Equal(t, http.StatusOK, w.Code)
		course := decodeBody(t, w)["course"].(map[string]any)
		assert.Equal(t, "approved", course["textbookStatus"])
		assert.Equal(t, "chem-101", course["textbookID"])
		assert.NotContains(t, course, "pendingTextbookID")
	})

	mt.Run("course missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.courses", mtest.FirstBatch))
		w := serve(analyticsRouter(mt), http.MethodPut, "/analytics/courses/c404/textbook/review", map[string]any{"approve": false})
		requireErrCode(t, w, http.StatusNotFound, "course_not_found")
	})
}
