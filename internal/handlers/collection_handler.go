package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"conductor/internal/collections"
	"conductor/internal/constants"
	"conductor/internal/models"
	"conductor/internal/utils"
)

type CollectionHandler struct {
	Service     *collections.Service
	AuditLogger *utils.AuditLogger
}

// POST /collections
func (h *CollectionHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var c models.Collection
	if err := utils.DecodeJSON(r, &c); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.Service.Create(ctx, &c); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CollectionEntity, constants.Create, c)

	utils.JSON(w, http.StatusCreated, map[string]any{"collection": c})
}

// GET /collections?orgID=&privacy=&page=&limit=
func (h *CollectionHandler) GetCollections(w http.ResponseWriter, r *http.Request) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	q := r.URL.Query()

	ctx, cancel := requestContext(r)
	defer cancel()

	colls, total, err := h.Service.List(ctx, collections.ListFilter{
		OrgID:   q.Get("orgID"),
		Privacy: q.Get("privacy"),
		Skip:    p.Skip(),
		Limit:   int64(p.Limit),
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"numTotal":    total,
		"page":        p.Page,
		"limit":       p.Limit,
		"collections": colls,
	})
}

// GET /collections/{collID}
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	c, err := h.Service.Get(ctx, mux.Vars(r)["collID"], r.URL.Query().Get("orgID"))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"collection": c})
}

// PUT /collections/{collID}
func (h *CollectionHandler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	collID := mux.Vars(r)["collID"]

	var patch collections.Patch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	c, err := h.Service.Update(ctx, collID, patch)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CollectionEntity, constants.Update, map[string]any{"collID": collID, "patch": patch})

	utils.JSON(w, http.StatusOK, map[string]any{"collection": c})
}

// DELETE /collections/{collID}
func (h *CollectionHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	collID := mux.Vars(r)["collID"]

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.Service.Delete(ctx, collID); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CollectionEntity, constants.Delete, map[string]any{"collID": collID})

	utils.JSON(w, http.StatusOK, map[string]any{"msg": "Collection deleted", "collID": collID})
}

// GET /collections/{collID}/resources?orgID=&page=&limit=
func (h *CollectionHandler) GetCollectionResources(w http.ResponseWriter, r *http.Request) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	resources, total, err := h.Service.Resources(ctx, mux.Vars(r)["collID"], r.URL.Query().Get("orgID"),
		int(p.Skip()), p.Limit)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"numTotal":  total,
		"page":      p.Page,
		"limit":     p.Limit,
		"resources": resources,
	})
}

// POST /collections/{collID}/resources
func (h *CollectionHandler) AddCollectionResource(w http.ResponseWriter, r *http.Request) {
	collID := mux.Vars(r)["collID"]

	var res models.CollectionResource
	if err := utils.DecodeJSON(r, &res); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.Service.AddResource(ctx, collID, res); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CollectionEntity, constants.AddResource, map[string]any{"collID": collID, "resource": res})

	utils.JSON(w, http.StatusOK, map[string]any{"collID": collID, "resource": res})
}

// DELETE /collections/{collID}/resources/{resourceID}
func (h *CollectionHandler) RemoveCollectionResource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collID, resourceID := vars["collID"], vars["resourceID"]

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.Service.RemoveResource(ctx, collID, resourceID); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CollectionEntity, constants.DropResource, map[string]any{"collID": collID, "resourceID": resourceID})

	utils.JSON(w, http.StatusOK, map[string]any{"collID": collID, "resourceID": resourceID})
}

// PUT /collections/{collID}/sync
func (h *CollectionHandler) SyncCollection(w http.ResponseWriter, r *http.Request) {
	collID := mux.Vars(r)["collID"]

	ctx, cancel := requestContext(r)
	defer cancel()

	n, err := h.Service.SyncAutoManaged(ctx, collID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	_ = h.AuditLogger.Log(ctx, models.CollectionEntity, constants.Sync, map[string]any{"collID": collID, "resources": n})

	utils.JSON(w, http.StatusOK, map[string]any{"collID": collID, "numResources": n})
}
