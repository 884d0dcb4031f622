package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conductor/internal/apperr"
	"conductor/internal/constants"
	"conductor/internal/models"
	"conductor/internal/utils"
)

type AdoptionHandler struct {
	AdoptionCol *mongo.Collection
	BookCol     *mongo.Collection
	AuditLogger *utils.AuditLogger
}

// POST /commons/adoptionreport
func (h *AdoptionHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var report models.AdoptionReport
	if err := utils.DecodeJSON(r, &report); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := report.Validate(); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var book models.Book
	if err := h.BookCol.FindOne(ctx, bson.M{"bookID": report.Resource.ID}).Decode(&book); err != nil {
		utils.WriteError(w, r, apperr.NotFoundOr(err, apperr.CodeBookNotFound))
		return
	}
	report.Resource.Title = book.Title
	report.Resource.Library = book.Library
	report.Resource.Link = book.Links.Online
	report.ReportID = uuid.NewString()
	report.CreatedAt = time.Now().UTC()

	if _, err := h.AdoptionCol.InsertOne(ctx, report); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.AdoptionEntity, constants.Submit, map[string]any{"reportID": report.ReportID, "bookID": book.BookID})

	utils.JSON(w, http.StatusCreated, map[string]any{"report": report})
}

// GET /commons/adoptionreports?bookID=&page=&limit=
func (h *AdoptionHandler) GetReports(w http.ResponseWriter, r *http.Request) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	filter := bson.M{}
	if bookID := r.URL.Query().Get("bookID"); bookID != "" {
		filter["resource.id"] = bookID
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	total, err := h.AdoptionCol.CountDocuments(ctx, filter)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	cursor, err := h.AdoptionCol.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit)))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	defer cursor.Close(ctx)

	reports := []models.AdoptionReport{}
	if err := cursor.All(ctx, &reports); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"numTotal": total,
		"page":     p.Page,
		"limit":    p.Limit,
		"reports":  reports,
	})
}

// DELETE /commons/adoptionreport/{reportID}
func (h *AdoptionHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["reportID"]

	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.AdoptionCol.DeleteOne(ctx, bson.M{"reportID": reportID})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if res.DeletedCount == 0 {
		utils.JSONError(w, apperr.CodeReportNotFound, "")
		return
	}
	_ = h.AuditLogger.Log(ctx, models.AdoptionEntity, constants.Delete, map[string]any{"reportID": reportID})

	utils.JSON(w, http.StatusOK, map[string]any{"msg": "Adoption report deleted", "reportID": reportID})
}

// AdoptionSummaryPipeline counts the reports filed against bookID by role
// and totals the students reached by instructor adoptions.
func AdoptionSummaryPipeline(bookID string) mongo.Pipeline {
	roleCount := func(role string) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$role", role}}, 1, 0}}}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"resource.id": bookID}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$resource.id",
			"reports":         bson.M{"$sum": 1},
			"instructors":     roleCount(string(models.AuthorInstructor)),
			"students":        roleCount(string(models.AuthorStudent)),
			"studentsReached": bson.M{"$sum": bson.M{"$ifNull": bson.A{"$instructor.students", 0}}},
		}}},
	}
}

// GET /commons/book/{bookID}/adoptions/summary
func (h *AdoptionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	bookID := mux.Vars(r)["bookID"]
	if err := validBookID(bookID); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	cursor, err := h.AdoptionCol.Aggregate(ctx, AdoptionSummaryPipeline(bookID))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	defer cursor.Close(ctx)

	var results []models.AdoptionSummary
	if err := cursor.All(ctx, &results); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	summary := models.AdoptionSummary{BookID: bookID}
	if len(results) > 0 {
		summary = results[0]
	}
	utils.JSON(w, http.StatusOK, map[string]any{"summary": summary})
}
