package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// LedgerHandler handles direct ledger endpoints: initial stock intake,
// discrepancy listing and resolution.
type LedgerHandler struct {
	DB *sql.DB
}

type intakeRequest struct {
	PartyID  int64 `json:"party_id"`
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// Intake handles POST /api/ledger/intake: stock entering the system outside
// any transfer (initial load, procurement receipt). Creates a held lot or
// consumable entry with no transfer-line back-reference.
func (h *LedgerHandler) Intake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.PartyID <= 0 || req.ItemID <= 0 || req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "party_id, item_id, and quantity are required and must be positive")
		return
	}

	party, err := store.GetParty(r.Context(), h.DB, req.PartyID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get party")
		return
	}
	if party == nil || party.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "party not found")
		return
	}

	ok, err := store.ItemExists(r.Context(), h.DB, req.ItemID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to check item")
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	if party.Kind == model.PartyKindWarehouse {
		_, err = store.AddLot(r.Context(), h.DB, req.PartyID, req.ItemID, req.Quantity, model.LedgerStatusHeld, nil)
	} else {
		_, err = store.AddConsumable(r.Context(), h.DB, req.PartyID, req.ItemID, req.Quantity, model.LedgerStatusHeld, nil)
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("stock intake", "user", claims.Username,
		"party", party.Name, "item_id", req.ItemID, "quantity", req.Quantity)
	jsonResponse(w, http.StatusCreated, map[string]string{"message": "stock added"})
}

// Discrepancies handles GET /api/ledger/discrepancies: unresolved missing and
// over-received lots, optionally for one warehouse.
func (h *LedgerHandler) Discrepancies(w http.ResponseWriter, r *http.Request) {
	var warehouseID int64
	if v := r.URL.Query().Get("warehouse_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid warehouse_id")
			return
		}
		warehouseID = id
	}

	lots, err := store.ListDiscrepancyLots(r.Context(), h.DB, warehouseID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list discrepancies")
		return
	}
	if lots == nil {
		lots = []model.StockLot{}
	}
	jsonResponse(w, http.StatusOK, lots)
}

// Resolve handles POST /api/ledger/discrepancies/{id}/resolve.
func (h *LedgerHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid lot id")
		return
	}

	if err := store.ResolveLot(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("discrepancy resolved", "user", claims.Username, "lot_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "resolved"})
}
