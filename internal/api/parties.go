package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// PartiesHandler handles warehouse/equipment registry endpoints.
type PartiesHandler struct {
	DB *sql.DB
}

type createPartyRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Site string `json:"site"`
}

type updatePartyRequest struct {
	Name string `json:"name"`
	Site string `json:"site"`
}

// List handles GET /api/parties.
func (h *PartiesHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !model.ValidPartyKind(kind) {
		jsonError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	parties, err := store.ListParties(r.Context(), h.DB, kind)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list parties")
		return
	}
	if parties == nil {
		parties = []model.Party{}
	}
	jsonResponse(w, http.StatusOK, parties)
}

// Create handles POST /api/parties.
func (h *PartiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPartyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || !model.ValidPartyKind(req.Kind) {
		jsonError(w, http.StatusBadRequest, "name and a valid kind (warehouse or equipment) required")
		return
	}

	party, err := store.CreateParty(r.Context(), h.DB, req.Name, req.Kind, req.Site)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create party")
		return
	}

	jsonResponse(w, http.StatusCreated, party)
}

// Get handles GET /api/parties/{id}.
func (h *PartiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid party id")
		return
	}

	party, err := store.GetParty(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get party")
		return
	}
	if party == nil {
		jsonError(w, http.StatusNotFound, "party not found")
		return
	}

	jsonResponse(w, http.StatusOK, party)
}

// Update handles PUT /api/parties/{id}.
func (h *PartiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid party id")
		return
	}

	var req updatePartyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdateParty(r.Context(), h.DB, id, req.Name, req.Site); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update party")
		return
	}

	party, _ := store.GetParty(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, party)
}

// Delete handles DELETE /api/parties/{id}.
func (h *PartiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid party id")
		return
	}

	if err := store.DeleteParty(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "party deleted"})
}

// GetStock handles GET /api/parties/{id}/stock: held balances plus, for
// warehouses, the lot breakdown in FIFO order.
func (h *PartiesHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid party id")
		return
	}

	party, err := store.GetParty(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get party")
		return
	}
	if party == nil {
		jsonError(w, http.StatusNotFound, "party not found")
		return
	}

	if party.Kind == model.PartyKindWarehouse {
		balances, err := store.WarehouseBalances(r.Context(), h.DB, id)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to get balances")
			return
		}
		lots, err := store.ListLots(r.Context(), h.DB, id, 0, "")
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to get lots")
			return
		}
		if balances == nil {
			balances = []model.Balance{}
		}
		if lots == nil {
			lots = []model.StockLot{}
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"balances": balances,
			"lots":     lots,
		})
		return
	}

	balances, err := store.EquipmentBalances(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get balances")
		return
	}
	entries, err := store.ListConsumables(r.Context(), h.DB, id, 0, "")
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get consumables")
		return
	}
	if balances == nil {
		balances = []model.Balance{}
	}
	if entries == nil {
		entries = []model.ConsumableEntry{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"balances": balances,
		"entries":  entries,
	})
}
