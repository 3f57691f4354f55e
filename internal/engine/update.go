package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// UpdateInput carries the full replacement header and line claims for a
// still-pending transfer. The number of lines must match the record; a
// record that needs a different line count has to be recreated.
type UpdateInput struct {
	SenderKind   string      `json:"sender_kind"`
	SenderID     int64       `json:"sender_id"`
	ReceiverKind string      `json:"receiver_kind"`
	ReceiverID   int64       `json:"receiver_id"`
	InitiatorID  int64       `json:"initiator_id"`
	BatchNumber  string      `json:"batch_number"`
	Lines        []LineInput `json:"lines"`
	Actor        *int64      `json:"-"`
}

// UpdateTransfer rewrites a pending transfer's claims, keeping the ledger in
// step: quantity changes are applied as deltas against the immediate effect
// from creation time, while a sender/receiver change fully reverses the
// original effect and reapplies it under the new roles. After the rewrite a
// batch-matching pass runs again, since the update may have introduced the
// matching batch number or party pair.
func UpdateTransfer(ctx context.Context, db *sql.DB, transferID int64, in UpdateInput) (*model.Transfer, error) {
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
	if len(in.Lines) != len(t.Lines) {
		return nil, illegalStatef("changing the number of lines is not supported, recreate the transfer")
	}

	if err := validateParties(ctx, tx, in.SenderKind, in.SenderID, in.ReceiverKind, in.ReceiverID, in.InitiatorID); err != nil {
		return nil, err
	}
	if err := validateLines(ctx, tx, in.Lines); err != nil {
		return nil, err
	}

	batch := in.BatchNumber
	if batch == "" {
		batch = t.BatchNumber
	}

	rolesChanged := in.SenderKind != t.SenderKind || in.SenderID != t.SenderID ||
		in.ReceiverKind != t.ReceiverKind || in.ReceiverID != t.ReceiverID ||
		in.InitiatorID != t.InitiatorID

	if rolesChanged {
		if err := reassignRoles(ctx, tx, t, in); err != nil {
			return nil, err
		}
	} else {
		if err := adjustClaims(ctx, tx, t, in.Lines); err != nil {
			return nil, err
		}
	}

	if err := store.UpdateTransferHeader(ctx, tx, t.ID, in.SenderKind, in.SenderID,
		in.ReceiverKind, in.ReceiverID, in.InitiatorID, batch); err != nil {
		return nil, err
	}

	// The rewrite may have introduced a matchable counterpart.
	updated := &model.Transfer{
		SenderKind:   in.SenderKind,
		ReceiverKind: in.ReceiverKind,
	}
	matched := false
	if warehouseToWarehouse(updated) {
		matched, err = matchBatch(ctx, tx, batch, in.SenderID, in.ReceiverID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer update: %w", err)
	}

	slog.Info("transfer updated",
		"transfer_id", t.ID, "batch", batch,
		"roles_changed", rolesChanged, "matched", matched)

	return store.GetTransfer(ctx, db, transferID)
}

// reassignRoles fully reverses the creation-time ledger effect under the old
// roles and reapplies it under the new ones.
func reassignRoles(ctx context.Context, tx store.DBTX, t *model.Transfer, in UpdateInput) error {
	for _, line := range t.Lines {
		if err := reverseLineEffect(ctx, tx, t, line.ID, line.ItemID, line.ClaimedQty); err != nil {
			return err
		}
	}

	updated := &model.Transfer{
		ID:           t.ID,
		SenderKind:   in.SenderKind,
		SenderID:     in.SenderID,
		ReceiverKind: in.ReceiverKind,
		ReceiverID:   in.ReceiverID,
		InitiatorID:  in.InitiatorID,
	}
	for i, line := range t.Lines {
		nl := in.Lines[i]
		if err := store.UpdateLineClaim(ctx, tx, line.ID, nl.ItemID, nl.Quantity); err != nil {
			return err
		}
		if err := applyLineEffect(ctx, tx, updated, line.ID, nl.ItemID, nl.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// adjustClaims applies per-line deltas so the ledger keeps reflecting the
// record's current claims. Lines are matched positionally.
func adjustClaims(ctx context.Context, tx store.DBTX, t *model.Transfer, newLines []LineInput) error {
	for i, line := range t.Lines {
		nl := newLines[i]

		// An item swap is a reversal of the old line plus a fresh apply.
		if nl.ItemID != line.ItemID {
			if err := reverseLineEffect(ctx, tx, t, line.ID, line.ItemID, line.ClaimedQty); err != nil {
				return err
			}
			if err := store.UpdateLineClaim(ctx, tx, line.ID, nl.ItemID, nl.Quantity); err != nil {
				return err
			}
			if err := applyLineEffect(ctx, tx, t, line.ID, nl.ItemID, nl.Quantity); err != nil {
				return err
			}
			continue
		}

		delta := nl.Quantity - line.ClaimedQty
		if delta == 0 {
			continue
		}

		// Equipment sender effects are deferred, so only revalidate that the
		// new claim is still coverable.
		if t.SenderInitiated() && t.SenderKind == model.PartyKindEquipment {
			available, err := store.ConsumableBalance(ctx, tx, t.SenderID, line.ItemID)
			if err != nil {
				return err
			}
			if available < nl.Quantity {
				return validationf("equipment %d has %d of item %d, need %d",
					t.SenderID, available, line.ItemID, nl.Quantity)
			}
		} else if delta > 0 {
			if err := applyLineEffect(ctx, tx, t, line.ID, line.ItemID, delta); err != nil {
				return err
			}
		} else {
			if err := reverseLineEffect(ctx, tx, t, line.ID, line.ItemID, -delta); err != nil {
				return err
			}
		}

		if err := store.UpdateLineClaim(ctx, tx, line.ID, line.ItemID, nl.Quantity); err != nil {
			return err
		}
	}
	return nil
}
