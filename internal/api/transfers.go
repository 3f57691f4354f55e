package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/erazemk/prenos/internal/engine"
	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// TransfersHandler handles transfer lifecycle endpoints.
type TransfersHandler struct {
	DB *sql.DB
}

type acceptTransferRequest struct {
	Reports []engine.LineReport `json:"reports"`
	Comment string              `json:"comment"`
}

type rejectTransferRequest struct {
	Reason string `json:"reason"`
}

// engineError maps engine failures to HTTP status codes. Unclassified errors
// are internal.
func engineError(w http.ResponseWriter, err error) {
	var ve *engine.ValidationError
	var nfe *engine.NotFoundError
	var ise *engine.IllegalStateError

	switch {
	case errors.As(err, &ve):
		jsonError(w, http.StatusBadRequest, ve.Msg)
	case errors.As(err, &nfe):
		jsonError(w, http.StatusNotFound, nfe.Msg)
	case errors.As(err, &ise):
		jsonError(w, http.StatusConflict, ise.Msg)
	default:
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

func actorID(r *http.Request) *int64 {
	claims := GetClaims(r.Context())
	if claims == nil {
		return nil
	}
	return &claims.UserID
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in engine.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.CreatedBy = actorID(r)

	transfer, err := engine.CreateTransfer(r.Context(), h.DB, in)
	if err != nil {
		engineError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, transfer)
}

// Get handles GET /api/transfers/{id}.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	transfer, err := store.GetTransfer(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get transfer")
		return
	}
	if transfer == nil {
		jsonError(w, http.StatusNotFound, "transfer not found")
		return
	}

	jsonResponse(w, http.StatusOK, transfer)
}

// Accept handles POST /api/transfers/{id}/accept.
func (h *TransfersHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var req acceptTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transfer, err := engine.AcceptTransfer(r.Context(), h.DB, id, req.Reports, actorID(r), req.Comment)
	if err != nil {
		engineError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, transfer)
}

// Reject handles POST /api/transfers/{id}/reject.
func (h *TransfersHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var req rejectTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		jsonError(w, http.StatusBadRequest, "reason required")
		return
	}

	transfer, err := engine.RejectTransfer(r.Context(), h.DB, id, req.Reason, actorID(r))
	if err != nil {
		engineError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, transfer)
}

// Update handles PUT /api/transfers/{id}.
func (h *TransfersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var in engine.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.Actor = actorID(r)

	transfer, err := engine.UpdateTransfer(r.Context(), h.DB, id, in)
	if err != nil {
		engineError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, transfer)
}

// List handles GET /api/transfers with party_id, batch, initiator_id,
// purpose, and pending filters.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.TransferFilter

	if v := r.URL.Query().Get("party_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid party_id")
			return
		}
		f.PartyID = id
	}
	if v := r.URL.Query().Get("initiator_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid initiator_id")
			return
		}
		f.InitiatorID = id
	}
	f.BatchNumber = r.URL.Query().Get("batch")
	f.Purpose = r.URL.Query().Get("purpose")
	f.PendingOnly = r.URL.Query().Get("pending") == "true"

	transfers, err := store.ListTransfers(r.Context(), h.DB, f)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list transfers")
		return
	}
	if transfers == nil {
		transfers = []model.Transfer{}
	}
	jsonResponse(w, http.StatusOK, transfers)
}
