package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// RejectTransfer voids a pending transfer outright, without reconciling
// quantities. No inventory moved from the rejecting party's perspective, so
// no ledger mutation occurs; a reconciliation that discovers mismatches goes
// through AcceptTransfer instead.
func RejectTransfer(ctx context.Context, db *sql.DB, transferID int64, reason string, actor *int64) (*model.Transfer, error) {
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

	for _, line := range t.Lines {
		if err := store.SetLineOutcome(ctx, tx, line.ID, nil,
			model.TransferStatusRejected, reason); err != nil {
			return nil, err
		}
	}
	if err := store.FinalizeTransfer(ctx, tx, transferID,
		model.TransferStatusRejected, actor, reason); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing rejection: %w", err)
	}

	slog.Info("transfer rejected",
		"transfer_id", transferID, "batch", t.BatchNumber, "reason", reason)

	return store.GetTransfer(ctx, db, transferID)
}
