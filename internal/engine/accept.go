package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// AcceptTransfer reconciles a pending transfer against the counterparty's
// per-line reports. The record ends accepted only when every line's claimed
// and reported quantities agree and nothing was flagged as not received;
// otherwise it ends rejected, with the ledgers still corrected to the agreed
// facts, since rejection is a classification, not a rollback.
func AcceptTransfer(ctx context.Context, db *sql.DB, transferID int64, reports []LineReport, approvedBy *int64, comment string) (*model.Transfer, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := store.GetTransfer(ctx, tx, transferID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFoundf("transfer %d does not exist", transferID)
	}
	if t.Terminal() {
		return nil, illegalStatef("transfer %d is already %s", transferID, t.Status)
	}

	byLine := make(map[int64]LineReport, len(reports))
	known := make(map[int64]bool, len(t.Lines))
	for _, l := range t.Lines {
		known[l.ID] = true
	}
	for _, r := range reports {
		if !known[r.LineID] {
			return nil, validationf("line %d does not belong to transfer %d", r.LineID, transferID)
		}
		byLine[r.LineID] = r
	}

	status, err := reconcile(ctx, tx, t, reconcileOpts{
		reports:    byLine,
		approvedBy: approvedBy,
		comment:    comment,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reconciliation: %w", err)
	}

	slog.Info("transfer reconciled",
		"transfer_id", transferID, "batch", t.BatchNumber, "status", status)

	return store.GetTransfer(ctx, db, transferID)
}
