package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conductor/internal/apperr"
	"conductor/internal/catalog"
	"conductor/internal/collections"
	"conductor/internal/constants"
	"conductor/internal/models"
	"conductor/internal/textutil"
	"conductor/internal/utils"
)

type BookHandler struct {
	Catalog     *catalog.Service
	Collections *collections.Service
	BookCol     *mongo.Collection
	OrgCol      *mongo.Collection
	AdoptionCol *mongo.Collection
	AuditLogger *utils.AuditLogger
}

// GET /commons/catalog
func (h *BookHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	q, err := catalog.ParseQuery(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	page, err := h.Catalog.Search(ctx, r.URL.Query().Get("orgID"), q)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"numTotal": page.Total,
		"page":     page.Page,
		"limit":    page.Limit,
		"books":    page.Books,
	})
}

// GET /commons/catalog/filters
func (h *BookHandler) GetCatalogFilters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	filters, err := h.Catalog.Filters(ctx, r.URL.Query().Get("orgID"))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"filters": filters})
}

// GET /commons/book/{bookID}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID := mux.Vars(r)["bookID"]
	if err := validBookID(bookID); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var book models.Book
	if err := h.BookCol.FindOne(ctx, bson.M{"bookID": bookID}).Decode(&book); err != nil {
		utils.WriteError(w, r, apperr.NotFoundOr(err, apperr.CodeBookNotFound))
		return
	}
	adoptions, err := h.AdoptionCol.CountDocuments(ctx, bson.M{"resource.id": bookID})
	if err != nil {
		utils.WriteError(w, r, fmt.Errorf("count adoptions: %w", err))
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"book": book, "adoptions": adoptions})
}

// POST /commons/book
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var book models.Book
	if err := utils.DecodeJSON(r, &book); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	book.Normalize()
	if book.Library == "" || book.CoverID == "" || book.Title == "" {
		utils.JSONError(w, apperr.CodeMissingField, "library, coverID, and title are required")
		return
	}
	if strings.Contains(book.Library, "-") {
		utils.JSONError(w, apperr.CodeBadRequest, "library cannot contain a dash")
		return
	}
	if !models.IsValidLocation(book.Location) {
		utils.JSONError(w, apperr.CodeBadRequest, fmt.Sprintf("unknown location %q", book.Location))
		return
	}
	book.Rating = 0
	book.HasPeerReviews = false
	book.LastUpdated = time.Now().UTC()

	ctx, cancel := requestContext(r)
	defer cancel()

	if _, err := h.BookCol.InsertOne(ctx, book); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.BookEntity, constants.Create, book)

	utils.JSON(w, http.StatusCreated, map[string]any{"book": book})
}

// PUT /commons/book/{bookID}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID := mux.Vars(r)["bookID"]
	if err := validBookID(bookID); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	var updateData map[string]any
	if err := utils.DecodeJSON(r, &updateData); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	set, err := bookUpdate(updateData)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var book models.Book
	err = h.BookCol.FindOneAndUpdate(ctx, bson.M{"bookID": bookID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&book)
	if err != nil {
		utils.WriteError(w, r, apperr.NotFoundOr(err, apperr.CodeBookNotFound))
		return
	}
	_ = h.AuditLogger.Log(ctx, models.BookEntity, constants.Update, map[string]any{"bookID": bookID, "fields": updateData})

	utils.JSON(w, http.StatusOK, map[string]any{"book": book})
}

// bookEditable lists the fields a PUT may set and whether each is a string.
var bookEditable = map[string]bool{
	"title": true, "author": true, "affiliation": true, "license": true,
	"subject": true, "course": true, "program": true, "location": true,
	"summary": true, "thumbnail": true, "projectID": true,
	"tags": false, "links": false, "cid": false,
}

// bookUpdate validates a partial book update and derives the folded search
// fields.
func bookUpdate(data map[string]any) (bson.M, error) {
	if len(data) == 0 {
		return nil, apperr.New(apperr.CodeBadRequest, "No update fields provided")
	}
	set := bson.M{}
	for k, v := range data {
		if models.ImmutableBookFields[k] {
			return nil, apperr.Newf(apperr.CodeImmutableField, "%s cannot be changed", k)
		}
		isString, ok := bookEditable[k]
		if !ok {
			return nil, apperr.Newf(apperr.CodeBadRequest, "unknown field %q", k)
		}
		if isString {
			s, ok := v.(string)
			if !ok {
				return nil, apperr.Newf(apperr.CodeBadRequest, "%s must be a string", k)
			}
			v = strings.TrimSpace(s)
		}
		set[k] = v
	}

	if title, ok := set["title"].(string); ok {
		if title == "" {
			return nil, apperr.New(apperr.CodeMissingField, "title cannot be empty")
		}
		set["titleCI"] = textutil.Fold(title)
	}
	if author, ok := set["author"].(string); ok {
		set["authorCI"] = textutil.Fold(author)
	}
	if loc, ok := set["location"].(string); ok && !models.IsValidLocation(loc) {
		return nil, apperr.Newf(apperr.CodeBadRequest, "unknown location %q", loc)
	}
	if raw, ok := set["tags"]; ok {
		tags, err := stringList(raw)
		if err != nil {
			return nil, err
		}
		set["tags"] = textutil.Dedupe(tags)
	}
	if raw, ok := set["links"]; ok {
		links, err := bookLinks(raw)
		if err != nil {
			return nil, err
		}
		set["links"] = links
	}
	if raw, ok := set["cid"]; ok {
		cids, err := stringList(raw)
		if err != nil {
			return nil, err
		}
		set["cid"] = cids
	}
	set["lastUpdated"] = time.Now().UTC()
	return set, nil
}

// bookLinks narrows a decoded JSON value to models.BookLinks so the stored
// document keeps its shape.
func bookLinks(v any) (models.BookLinks, error) {
	var links models.BookLinks
	obj, ok := v.(map[string]any)
	if !ok {
		return links, apperr.New(apperr.CodeBadRequest, "links must be an object")
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return links, apperr.New(apperr.CodeBadRequest, "links must be an object")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&links); err != nil {
		return links, apperr.Newf(apperr.CodeBadRequest, "invalid links: %v", err)
	}
	return links, nil
}

func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, apperr.New(apperr.CodeBadRequest, "expected a list of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, apperr.New(apperr.CodeBadRequest, "expected a list of strings")
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, nil
}

// DELETE /commons/book/{bookID}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := mux.Vars(r)["bookID"]
	if err := validBookID(bookID); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.BookCol.DeleteOne(ctx, bson.M{"bookID": bookID})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if res.DeletedCount == 0 {
		utils.JSONError(w, apperr.CodeBookNotFound, "")
		return
	}
	if _, err := h.OrgCol.UpdateMany(ctx, bson.M{"customCatalog": bookID},
		bson.M{"$pull": bson.M{"customCatalog": bookID}}); err != nil {
		utils.WriteError(w, r, fmt.Errorf("remove book from custom catalogs: %w", err))
		return
	}
	if err := h.Collections.RemoveBookEverywhere(ctx, bookID); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.BookEntity, constants.Delete, map[string]any{"bookID": bookID})

	utils.JSON(w, http.StatusOK, map[string]any{"msg": "Book deleted", "bookID": bookID})
}

// GET /commons/catalogs/{orgID}
func (h *BookHandler) GetOrgCatalog(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgID"]

	ctx, cancel := requestContext(r)
	defer cancel()

	var org models.Organization
	if err := h.OrgCol.FindOne(ctx, bson.M{"orgID": orgID}).Decode(&org); err != nil {
		utils.WriteError(w, r, apperr.NotFoundOr(err, apperr.CodeOrgNotFound))
		return
	}
	if org.CatalogMatchingTags == nil {
		org.CatalogMatchingTags = []string{}
	}
	if org.CustomCatalog == nil {
		org.CustomCatalog = []string{}
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"orgID":               org.OrgID,
		"catalogMatchingTags": org.CatalogMatchingTags,
		"customCatalog":       org.CustomCatalog,
	})
}

// PUT /commons/catalogs/{orgID}/tags
func (h *BookHandler) UpdateOrgCatalogTags(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgID"]

	var body struct {
		Tags []string `json:"catalogMatchingTags"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	tags := make([]string, 0, len(body.Tags))
	for _, t := range body.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	tags = textutil.Dedupe(tags)

	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.OrgCol.UpdateOne(ctx, bson.M{"orgID": orgID},
		bson.M{"$set": bson.M{"catalogMatchingTags": tags, "updatedAt": time.Now().UTC()}})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if res.MatchedCount == 0 {
		utils.JSONError(w, apperr.CodeOrgNotFound, "")
		return
	}
	_ = h.AuditLogger.Log(ctx, models.OrgEntity, constants.Update, map[string]any{"orgID": orgID, "catalogMatchingTags": tags})

	utils.JSON(w, http.StatusOK, map[string]any{"orgID": orgID, "catalogMatchingTags": tags})
}

// POST /commons/catalogs/{orgID}/resources/{bookID}
func (h *BookHandler) AddOrgCatalogResource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, bookID := vars["orgID"], vars["bookID"]
	if err := validBookID(bookID); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	n, err := h.BookCol.CountDocuments(ctx, bson.M{"bookID": bookID})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if n == 0 {
		utils.JSONError(w, apperr.CodeBookNotFound, "")
		return
	}
	res, err := h.OrgCol.UpdateOne(ctx, bson.M{"orgID": orgID},
		bson.M{"$addToSet": bson.M{"customCatalog": bookID}})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if res.MatchedCount == 0 {
		utils.JSONError(w, apperr.CodeOrgNotFound, "")
		return
	}
	_ = h.AuditLogger.Log(ctx, models.OrgEntity, constants.AddResource, map[string]any{"orgID": orgID, "bookID": bookID})

	utils.JSON(w, http.StatusOK, map[string]any{"orgID": orgID, "bookID": bookID})
}

// DELETE /commons/catalogs/{orgID}/resources/{bookID}
func (h *BookHandler) RemoveOrgCatalogResource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, bookID := vars["orgID"], vars["bookID"]

	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.OrgCol.UpdateOne(ctx, bson.M{"orgID": orgID},
		bson.M{"$pull": bson.M{"customCatalog": bookID}})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if res.MatchedCount == 0 {
		utils.JSONError(w, apperr.CodeOrgNotFound, "")
		return
	}
	_ = h.AuditLogger.Log(ctx, models.OrgEntity, constants.DropResource, map[string]any{"orgID": orgID, "bookID": bookID})

	utils.JSON(w, http.StatusOK, map[string]any{"orgID": orgID, "bookID": bookID})
}
