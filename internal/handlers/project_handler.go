package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conductor/internal/aimeta"
	"conductor/internal/apperr"
	"conductor/internal/constants"
	"conductor/internal/models"
	"conductor/internal/requestctx"
	"conductor/internal/utils"
)

// PageMetadataLister reads generated page metadata for a book.
type PageMetadataLister interface {
	ListPageMetadata(ctx context.Context, bookID string) ([]models.PageMetadata, error)
}

type ProjectHandler struct {
	ProjectCol  *mongo.Collection
	Runner      *aimeta.Runner
	Metadata    PageMetadataLister
	AuditLogger *utils.AuditLogger
}

type projectPatch struct {
	Title             *string `json:"title"`
	Visibility        *string `json:"visibility"`
	AllowAnonPR       *bool   `json:"allowAnonPR"`
	PreferredPRRubric *string `json:"preferredPRRubric"`
	LibreLibrary      *string `json:"libreLibrary"`
	LibreCoverID      *string `json:"libreCoverID"`
}

func (h *ProjectHandler) loadProject(ctx context.Context, projectID string) (*models.Project, error) {
	var p models.Project
	if err := h.ProjectCol.FindOne(ctx, bson.M{"projectID": projectID}).Decode(&p); err != nil {
		return nil, apperr.NotFoundOr(err, apperr.CodeProjectNotFound)
	}
	if p.BatchUpdateJobs == nil {
		p.BatchUpdateJobs = []models.BatchJob{}
	}
	return &p, nil
}

// POST /project
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var p models.Project
	if err := utils.DecodeJSON(r, &p); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	p.Title = strings.TrimSpace(p.Title)
	p.OrgID = strings.TrimSpace(p.OrgID)
	if p.Title == "" || p.OrgID == "" {
		utils.JSONError(w, apperr.CodeMissingField, "title and orgID are required")
		return
	}
	if p.Visibility == "" {
		p.Visibility = "private"
	}
	if !models.IsValidVisibility(p.Visibility) {
		utils.JSONError(w, apperr.CodeBadRequest, "visibility must be public or private")
		return
	}
	now := time.Now().UTC()
	p.ProjectID = uuid.NewString()
	p.Rating = 0
	p.BatchUpdateJobs = []models.BatchJob{}
	p.CreatedAt, p.UpdatedAt = now, now

	ctx, cancel := requestContext(r)
	defer cancel()

	if _, err := h.ProjectCol.InsertOne(ctx, p); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.ProjectEntity, constants.Create, p)

	utils.JSON(w, http.StatusCreated, map[string]any{"project": p})
}

// GET /project/{projectID}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	p, err := h.loadProject(ctx, mux.Vars(r)["projectID"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"project": p})
}

// PUT /project/{projectID}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectID"]

	var patch projectPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			utils.JSONError(w, apperr.CodeMissingField, "title cannot be empty")
			return
		}
		set["title"] = title
	}
	if patch.Visibility != nil {
		if !models.IsValidVisibility(*patch.Visibility) {
			utils.JSONError(w, apperr.CodeBadRequest, "visibility must be public or private")
			return
		}
		set["visibility"] = *patch.Visibility
	}
	if patch.AllowAnonPR != nil {
		set["allowAnonPR"] = *patch.AllowAnonPR
	}
	if patch.PreferredPRRubric != nil {
		set["preferredPRRubric"] = strings.TrimSpace(*patch.PreferredPRRubric)
	}
	if patch.LibreLibrary != nil {
		set["libreLibrary"] = strings.ToLower(strings.TrimSpace(*patch.LibreLibrary))
	}
	if patch.LibreCoverID != nil {
		set["libreCoverID"] = strings.TrimSpace(*patch.LibreCoverID)
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var p models.Project
	err := h.ProjectCol.FindOneAndUpdate(ctx, bson.M{"projectID": projectID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		utils.WriteError(w, r, apperr.NotFoundOr(err, apperr.CodeProjectNotFound))
		return
	}
	_ = h.AuditLogger.Log(ctx, models.ProjectEntity, constants.Update, map[string]any{"projectID": projectID, "patch": patch})

	utils.JSON(w, http.StatusOK, map[string]any{"project": p})
}

// POST /project/{projectID}/ai-metadata-batch
func (h *ProjectHandler) StartBatchJob(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectID"]

	var body struct {
		Type string `json:"type"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	p, err := h.loadProject(ctx, projectID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	ranBy := requestctx.UserIDFromContext(ctx)
	if ranBy == "" {
		ranBy = "system"
	}
	job, err := h.Runner.Start(ctx, p, body.Type, ranBy)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.ProjectEntity, constants.StartJob, map[string]any{"projectID": projectID, "jobID": job.JobID, "type": job.Type})

	utils.JSON(w, http.StatusAccepted, map[string]any{"jobID": job.JobID, "job": job})
}

// GET /project/{projectID}/ai-metadata-batch
func (h *ProjectHandler) GetBatchJobs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	p, err := h.loadProject(ctx, mux.Vars(r)["projectID"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"jobs": p.BatchUpdateJobs})
}

// GET /project/{projectID}/ai-metadata-batch/{jobID}
func (h *ProjectHandler) GetBatchJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ctx, cancel := requestContext(r)
	defer cancel()

	p, err := h.loadProject(ctx, vars["projectID"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	job := p.Job(vars["jobID"])
	if job == nil {
		utils.JSONError(w, apperr.CodeJobNotFound, "")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"job": job})
}

// GET /commons/book/{bookID}/page-metadata
func (h *ProjectHandler) GetPageMetadata(w http.ResponseWriter, r *http.Request) {
	bookID := mux.Vars(r)["bookID"]
	if err := validBookID(bookID); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	pages, err := h.Metadata.ListPageMetadata(ctx, bookID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"bookID": bookID, "pages": pages})
}
