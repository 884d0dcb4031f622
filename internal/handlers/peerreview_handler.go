package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"conductor/internal/constants"
	"conductor/internal/models"
	"conductor/internal/peerreview"
	"conductor/internal/utils"
)

type PeerReviewHandler struct {
	Service     *peerreview.Service
	AuditLogger *utils.AuditLogger
}

// GET /peerreview/rubrics?orgID=
func (h *PeerReviewHandler) GetRubrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	rubrics, err := h.Service.ListRubrics(ctx, r.URL.Query().Get("orgID"))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"rubrics": rubrics})
}

// POST /peerreview/rubric
func (h *PeerReviewHandler) CreateRubric(w http.ResponseWriter, r *http.Request) {
	var rubric models.PeerReviewRubric
	if err := utils.DecodeJSON(r, &rubric); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.Service.CreateRubric(ctx, &rubric); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.RubricEntity, constants.Create, rubric)

	utils.JSON(w, http.StatusCreated, map[string]any{"rubric": rubric})
}

// GET /peerreview/rubric/{rubricID}
func (h *PeerReviewHandler) GetRubric(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	rubric, err := h.Service.GetRubric(ctx, mux.Vars(r)["rubricID"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"rubric": rubric})
}

// PUT /peerreview/rubric/{rubricID}
func (h *PeerReviewHandler) UpdateRubric(w http.ResponseWriter, r *http.Request) {
	rubricID := mux.Vars(r)["rubricID"]

	var in models.PeerReviewRubric
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	rubric, err := h.Service.UpdateRubric(ctx, rubricID, &in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.RubricEntity, constants.Update, rubric)

	utils.JSON(w, http.StatusOK, map[string]any{"rubric": rubric})
}

// DELETE /peerreview/rubric/{rubricID}
func (h *PeerReviewHandler) DeleteRubric(w http.ResponseWriter, r *http.Request) {
	rubricID := mux.Vars(r)["rubricID"]

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.Service.DeleteRubric(ctx, rubricID); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.RubricEntity, constants.Delete, map[string]any{"rubricID": rubricID})

	utils.JSON(w, http.StatusOK, map[string]any{"msg": "Rubric deleted", "rubricID": rubricID})
}

// GET /project/{projectID}/peerreview/rubric
func (h *PeerReviewHandler) GetProjectRubric(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	rubric, source, err := h.Service.ProjectRubric(ctx, mux.Vars(r)["projectID"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"rubric": rubric, "source": source})
}

// POST /project/{projectID}/peerreview
func (h *PeerReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectID"]

	var review models.PeerReview
	if err := utils.DecodeJSON(r, &review); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.Service.Submit(ctx, projectID, &review); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.PeerReviewEntity, constants.Submit, map[string]any{
		"projectID":    projectID,
		"peerReviewID": review.PeerReviewID,
	})

	utils.JSON(w, http.StatusCreated, map[string]any{"review": review.Redacted()})
}

// GET /project/{projectID}/peerreviews
func (h *PeerReviewHandler) GetProjectReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	reviews, err := h.Service.ListReviews(ctx, mux.Vars(r)["projectID"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"numTotal": len(reviews), "reviews": reviews})
}

// GET /peerreview/{peerReviewID}
func (h *PeerReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	review, err := h.Service.GetReview(ctx, mux.Vars(r)["peerReviewID"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"review": review})
}

// DELETE /peerreview/{peerReviewID}
func (h *PeerReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	peerReviewID := mux.Vars(r)["peerReviewID"]

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.Service.DeleteReview(ctx, peerReviewID); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.PeerReviewEntity, constants.Delete, map[string]any{"peerReviewID": peerReviewID})

	utils.JSON(w, http.StatusOK, map[string]any{"msg": "Peer review deleted", "peerReviewID": peerReviewID})
}
