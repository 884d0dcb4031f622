package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conductor/internal/apperr"
	"conductor/internal/constants"
	"conductor/internal/models"
	"conductor/internal/textutil"
	"conductor/internal/utils"
)

type CIDHandler struct {
	CIDCol      *mongo.Collection
	AuditLogger *utils.AuditLogger
}

// CIDSearchFilter matches descriptors or titles starting with query,
// ignoring case and diacritics.
func CIDSearchFilter(query string) bson.M {
	query = strings.TrimSpace(query)
	if query == "" {
		return bson.M{}
	}
	return bson.M{"$or": bson.A{
		bson.M{"descriptor": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(query), Options: "i"}},
		bson.M{"titleCI": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(textutil.Fold(query))}},
	}}
}

// GET /c-ids?query=&page=&limit=
func (h *CIDHandler) SearchCIDs(w http.ResponseWriter, r *http.Request) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	filter := CIDSearchFilter(r.URL.Query().Get("query"))

	ctx, cancel := requestContext(r)
	defer cancel()

	total, err := h.CIDCol.CountDocuments(ctx, filter)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	cursor, err := h.CIDCol.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "descriptor", Value: 1}}).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit)))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	defer cursor.Close(ctx)

	cids := []models.CIDDescriptor{}
	if err := cursor.All(ctx, &cids); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"numTotal": total,
		"page":     p.Page,
		"limit":    p.Limit,
		"cids":     cids,
	})
}

// GET /c-ids/{descriptor}
func (h *CIDHandler) GetCID(w http.ResponseWriter, r *http.Request) {
	descriptor := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["descriptor"]))

	ctx, cancel := requestContext(r)
	defer cancel()

	var cid models.CIDDescriptor
	if err := h.CIDCol.FindOne(ctx, bson.M{"descriptor": descriptor}).Decode(&cid); err != nil {
		utils.WriteError(w, r, apperr.NotFoundOr(err, apperr.CodeCIDNotFound))
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"cid": cid})
}

// PUT /c-ids
func (h *CIDHandler) UpsertCIDs(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Descriptors []models.CIDDescriptor `json:"descriptors"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if len(body.Descriptors) == 0 {
		utils.JSONError(w, apperr.CodeMissingField, "descriptors are required")
		return
	}

	writes := make([]mongo.WriteModel, 0, len(body.Descriptors))
	for _, d := range body.Descriptors {
		d.Descriptor = strings.ToUpper(strings.TrimSpace(d.Descriptor))
		d.Title = strings.TrimSpace(d.Title)
		if d.Descriptor == "" || d.Title == "" {
			utils.JSONError(w, apperr.CodeMissingField, "every descriptor needs a descriptor and title")
			return
		}
		d.TitleCI = textutil.Fold(d.Title)
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"descriptor": d.Descriptor}).
			SetUpdate(bson.M{"$set": d}).
			SetUpsert(true))
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.CIDCol.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CIDEntity, constants.Update, map[string]any{"count": len(writes)})

	utils.JSON(w, http.StatusOK, map[string]any{
		"matched":  res.MatchedCount,
		"modified": res.ModifiedCount,
		"upserted": res.UpsertedCount,
	})
}
