package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"conductor/internal/middleware"
)

// Handlers groups every route handler the server mounts.
type Handlers struct {
	Books       *BookHandler
	Collections *CollectionHandler
	PeerReviews *PeerReviewHandler
	Projects    *ProjectHandler
	Adoptions   *AdoptionHandler
	Analytics   *AnalyticsHandler
	CIDs        *CIDHandler
	Stats       *StatsHandler
}

// Register mounts the routes on r. Reads and the public submission forms
// accept anonymous callers; every other write needs a bearer token.
func (h *Handlers) Register(r *mux.Router) {
	r.Use(middleware.OptionalJWT)
	auth := func(f http.HandlerFunc) http.Handler { return middleware.JWTAuthMiddleware(f) }

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OK")
	}).Methods(http.MethodGet)

	b := h.Books
	r.HandleFunc("/commons/catalog", b.GetCatalog).Methods(http.MethodGet)
	r.HandleFunc("/commons/catalog/filters", b.GetCatalogFilters).Methods(http.MethodGet)
	r.Handle("/commons/book", auth(b.CreateBook)).Methods(http.MethodPost)
	r.HandleFunc("/commons/book/{bookID}", b.GetBook).Methods(http.MethodGet)
	r.Handle("/commons/book/{bookID}", auth(b.UpdateBook)).Methods(http.MethodPut)
	r.Handle("/commons/book/{bookID}", auth(b.DeleteBook)).Methods(http.MethodDelete)
	r.HandleFunc("/commons/catalogs/{orgID}", b.GetOrgCatalog).Methods(http.MethodGet)
	r.Handle("/commons/catalogs/{orgID}/tags", auth(b.UpdateOrgCatalogTags)).Methods(http.MethodPut)
	r.Handle("/commons/catalogs/{orgID}/resources/{bookID}", auth(b.AddOrgCatalogResource)).Methods(http.MethodPost)
	r.Handle("/commons/catalogs/{orgID}/resources/{bookID}", auth(b.RemoveOrgCatalogResource)).Methods(http.MethodDelete)

	c := h.Collections
	r.Handle("/collections", auth(c.CreateCollection)).Methods(http.MethodPost)
	r.HandleFunc("/collections", c.GetCollections).Methods(http.MethodGet)
	r.HandleFunc("/collections/{collID}", c.GetCollection).Methods(http.MethodGet)
	r.Handle("/collections/{collID}", auth(c.UpdateCollection)).Methods(http.MethodPut)
	r.Handle("/collections/{collID}", auth(c.DeleteCollection)).Methods(http.MethodDelete)
	r.HandleFunc("/collections/{collID}/resources", c.GetCollectionResources).Methods(http.MethodGet)
	r.Handle("/collections/{collID}/resources", auth(c.AddCollectionResource)).Methods(http.MethodPost)
	r.Handle("/collections/{collID}/resources/{resourceID}", auth(c.RemoveCollectionResource)).Methods(http.MethodDelete)
	r.Handle("/collections/{collID}/sync", auth(c.SyncCollection)).Methods(http.MethodPut)

	pr := h.PeerReviews
	r.HandleFunc("/peerreview/rubrics", pr.GetRubrics).Methods(http.MethodGet)
	r.Handle("/peerreview/rubric", auth(pr.CreateRubric)).Methods(http.MethodPost)
	r.HandleFunc("/peerreview/rubric/{rubricID}", pr.GetRubric).Methods(http.MethodGet)
	r.Handle("/peerreview/rubric/{rubricID}", auth(pr.UpdateRubric)).Methods(http.MethodPut)
	r.Handle("/peerreview/rubric/{rubricID}", auth(pr.DeleteRubric)).Methods(http.MethodDelete)
	r.HandleFunc("/project/{projectID}/peerreview/rubric", pr.GetProjectRubric).Methods(http.MethodGet)
	r.HandleFunc("/project/{projectID}/peerreview", pr.SubmitReview).Methods(http.MethodPost)
	r.HandleFunc("/project/{projectID}/peerreviews", pr.GetProjectReviews).Methods(http.MethodGet)
	r.HandleFunc("/peerreview/{peerReviewID}", pr.GetReview).Methods(http.MethodGet)
	r.Handle("/peerreview/{peerReviewID}", auth(pr.DeleteReview)).Methods(http.MethodDelete)

	p := h.Projects
	r.Handle("/project", auth(p.CreateProject)).Methods(http.MethodPost)
	r.HandleFunc("/project/{projectID}", p.GetProject).Methods(http.MethodGet)
	r.Handle("/project/{projectID}", auth(p.UpdateProject)).Methods(http.MethodPut)
	r.Handle("/project/{projectID}/ai-metadata-batch", auth(p.StartBatchJob)).Methods(http.MethodPost)
	r.HandleFunc("/project/{projectID}/ai-metadata-batch", p.GetBatchJobs).Methods(http.MethodGet)
	r.HandleFunc("/project/{projectID}/ai-metadata-batch/{jobID}", p.GetBatchJob).Methods(http.MethodGet)
	r.HandleFunc("/commons/book/{bookID}/page-metadata", p.GetPageMetadata).Methods(http.MethodGet)

	a := h.Adoptions
	r.HandleFunc("/commons/adoptionreport", a.SubmitReport).Methods(http.MethodPost)
	r.Handle("/commons/adoptionreports", auth(a.GetReports)).Methods(http.MethodGet)
	r.Handle("/commons/adoptionreport/{reportID}", auth(a.DeleteReport)).Methods(http.MethodDelete)
	r.HandleFunc("/commons/book/{bookID}/adoptions/summary", a.GetSummary).Methods(http.MethodGet)

	an := h.Analytics
	r.Handle("/analytics/courses", auth(an.CreateCourse)).Methods(http.MethodPost)
	r.Handle("/analytics/courses", auth(an.GetCourses)).Methods(http.MethodGet)
	r.Handle("/analytics/courses/{courseID}", auth(an.GetCourse)).Methods(http.MethodGet)
	r.Handle("/analytics/courses/{courseID}", auth(an.UpdateCourse)).Methods(http.MethodPut)
	r.Handle("/analytics/courses/{courseID}", auth(an.DeleteCourse)).Methods(http.MethodDelete)
	r.Handle("/analytics/courses/{courseID}/textbook", auth(an.RequestTextbook)).Methods(http.MethodPut)
	r.Handle("/analytics/courses/{courseID}/textbook/review", auth(an.ReviewTextbook)).Methods(http.MethodPut)

	r.HandleFunc("/c-ids", h.CIDs.SearchCIDs).Methods(http.MethodGet)
	r.Handle("/c-ids", auth(h.CIDs.UpsertCIDs)).Methods(http.MethodPut)
	r.HandleFunc("/c-ids/{descriptor}", h.CIDs.GetCID).Methods(http.MethodGet)

	r.HandleFunc("/commons/stats", h.Stats.GetStats).Methods(http.MethodGet)
}
