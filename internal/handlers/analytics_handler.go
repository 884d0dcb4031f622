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

	"conductor/internal/apperr"
	"conductor/internal/constants"
	"conductor/internal/models"
	"conductor/internal/requestctx"
	"conductor/internal/utils"
)

type AnalyticsHandler struct {
	CourseCol   *mongo.Collection
	BookCol     *mongo.Collection
	AuditLogger *utils.AuditLogger
}

type coursePatch struct {
	Title     *string    `json:"title"`
	Term      *string    `json:"term"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

func (h *AnalyticsHandler) loadCourse(ctx context.Context, courseID string) (*models.AnalyticsCourse, error) {
	var c models.AnalyticsCourse
	if err := h.CourseCol.FindOne(ctx, bson.M{"courseID": courseID}).Decode(&c); err != nil {
		return nil, apperr.NotFoundOr(err, apperr.CodeCourseNotFound)
	}
	return &c, nil
}

// POST /analytics/courses
func (h *AnalyticsHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var c models.AnalyticsCourse
	if err := utils.DecodeJSON(r, &c); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c.Title = strings.TrimSpace(c.Title)
	c.OrgID = strings.TrimSpace(c.OrgID)
	if c.Title == "" || c.OrgID == "" {
		utils.JSONError(w, apperr.CodeMissingField, "title and orgID are required")
		return
	}
	if err := models.ValidateCourseDates(c.StartDate, c.EndDate); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	now := time.Now().UTC()
	c.CourseID = uuid.NewString()
	c.Owner = requestctx.UserIDFromContext(r.Context())
	c.TextbookStatus = models.TextbookNone
	c.TextbookID, c.PendingTextbookID = "", ""
	c.CreatedAt, c.UpdatedAt = now, now

	ctx, cancel := requestContext(r)
	defer cancel()

	if _, err := h.CourseCol.InsertOne(ctx, c); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CourseEntity, constants.Create, c)

	utils.JSON(w, http.StatusCreated, map[string]any{"course": c})
}

// GET /analytics/courses?orgID=
func (h *AnalyticsHandler) GetCourses(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if orgID := r.URL.Query().Get("orgID"); orgID != "" {
		filter["orgID"] = orgID
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	cursor, err := h.CourseCol.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}}))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	defer cursor.Close(ctx)

	courses := []models.AnalyticsCourse{}
	if err := cursor.All(ctx, &courses); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"courses": courses})
}

// GET /analytics/courses/{courseID}
func (h *AnalyticsHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	c, err := h.loadCourse(ctx, mux.Vars(r)["courseID"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"course": c})
}

// PUT /analytics/courses/{courseID}
func (h *AnalyticsHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseID"]

	var patch coursePatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	current, err := h.loadCourse(ctx, courseID)
	if err != nil {
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
	if patch.Term != nil {
		set["term"] = strings.TrimSpace(*patch.Term)
	}
	start, end := current.StartDate, current.EndDate
	if patch.StartDate != nil {
		start = *patch.StartDate
		set["startDate"] = start
	}
	if patch.EndDate != nil {
		end = *patch.EndDate
		set["endDate"] = end
	}
	if err := models.ValidateCourseDates(start, end); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	var c models.AnalyticsCourse
	err = h.CourseCol.FindOneAndUpdate(ctx, bson.M{"courseID": courseID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil {
		utils.WriteError(w, r, apperr.NotFoundOr(err, apperr.CodeCourseNotFound))
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CourseEntity, constants.Update, map[string]any{"courseID": courseID, "patch": patch})

	utils.JSON(w, http.StatusOK, map[string]any{"course": c})
}

// DELETE /analytics/courses/{courseID}
func (h *AnalyticsHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseID"]

	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.CourseCol.DeleteOne(ctx, bson.M{"courseID": courseID})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if res.DeletedCount == 0 {
		utils.JSONError(w, apperr.CodeCourseNotFound, "")
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CourseEntity, constants.Delete, map[string]any{"courseID": courseID})

	utils.JSON(w, http.StatusOK, map[string]any{"msg": "Course deleted", "courseID": courseID})
}

// PUT /analytics/courses/{courseID}/textbook
func (h *AnalyticsHandler) RequestTextbook(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseID"]

	var body struct {
		BookID string `json:"bookID"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := validBookID(body.BookID); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	n, err := h.BookCol.CountDocuments(ctx, bson.M{"bookID": body.BookID})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if n == 0 {
		utils.JSONError(w, apperr.CodeBookNotFound, "")
		return
	}

	var c models.AnalyticsCourse
	err = h.CourseCol.FindOneAndUpdate(ctx, bson.M{"courseID": courseID},
		bson.M{"$set": bson.M{
			"textbookStatus":    models.TextbookPending,
			"pendingTextbookID": body.BookID,
			"updatedAt":         time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil {
		utils.WriteError(w, r, apperr.NotFoundOr(err, apperr.CodeCourseNotFound))
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CourseEntity, constants.Update, map[string]any{"courseID": courseID, "pendingTextbookID": body.BookID})

	utils.JSON(w, http.StatusOK, map[string]any{"course": c})
}

// PUT /analytics/courses/{courseID}/textbook/review
func (h *AnalyticsHandler) ReviewTextbook(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseID"]

	var body struct {
		Approve *bool `json:"approve"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if body.Approve == nil {
		utils.JSONError(w, apperr.CodeMissingField, "approve is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	current, err := h.loadCourse(ctx, courseID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if current.TextbookStatus != models.TextbookPending || current.PendingTextbookID == "" {
		utils.JSONError(w, apperr.CodeNothingPending, "")
		return
	}

	update := bson.M{"$unset": bson.M{"pendingTextbookID": ""}}
	action := constants.Deny
	if *body.Approve {
		action = constants.Approve
		update["$set"] = bson.M{
			"textbookStatus": models.TextbookApproved,
			"textbookID":     current.PendingTextbookID,
			"updatedAt":      time.Now().UTC(),
		}
	} else {
		update["$set"] = bson.M{
			"textbookStatus": models.TextbookDenied,
			"updatedAt":      time.Now().UTC(),
		}
	}

	var c models.AnalyticsCourse
	err = h.CourseCol.FindOneAndUpdate(ctx,
		bson.M{"courseID": courseID, "textbookStatus": models.TextbookPending, "pendingTextbookID": current.PendingTextbookID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil {
		utils.WriteError(w, r, apperr.NotFoundOr(err, apperr.CodeNothingPending))
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CourseEntity, action, map[string]any{"courseID": courseID, "bookID": current.PendingTextbookID})

	utils.JSON(w, http.StatusOK, map[string]any{"course": c})
}
