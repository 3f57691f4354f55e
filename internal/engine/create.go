package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// CreateInput describes one party's account of a transfer.
type CreateInput struct {
	SenderKind   string      `json:"sender_kind"`
	SenderID     int64       `json:"sender_id"`
	ReceiverKind string      `json:"receiver_kind"`
	ReceiverID   int64       `json:"receiver_id"`
	InitiatorID  int64       `json:"initiator_id"`
	BatchNumber  string      `json:"batch_number"`
	Purpose      string      `json:"purpose"`
	Lines        []LineInput `json:"lines"`
	CreatedBy    *int64      `json:"-"`
}

// CreateTransfer records one party's claim about a movement and applies the
// immediate ledger effect for the initiating side. For warehouse-to-warehouse
// transfers a batch-matching pass runs in the same transaction, so a
// complementary pending record with the same batch number is reconciled
// before the creation is even committed.
func CreateTransfer(ctx context.Context, db *sql.DB, in CreateInput) (*model.Transfer, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := validateParties(ctx, tx, in.SenderKind, in.SenderID, in.ReceiverKind, in.ReceiverID, in.InitiatorID); err != nil {
		return nil, err
	}
	if err := validateLines(ctx, tx, in.Lines); err != nil {
		return nil, err
	}

	batch := in.BatchNumber
	if batch == "" {
		batch = uuid.NewString()
	}

	t := &model.Transfer{
		BatchNumber:  batch,
		SenderKind:   in.SenderKind,
		SenderID:     in.SenderID,
		ReceiverKind: in.ReceiverKind,
		ReceiverID:   in.ReceiverID,
		InitiatorID:  in.InitiatorID,
		Purpose:      in.Purpose,
		CreatedBy:    in.CreatedBy,
	}

	t.ID, err = store.InsertTransfer(ctx, tx, t)
	if err != nil {
		return nil, err
	}

	for _, l := range in.Lines {
		lineID, err := store.InsertLine(ctx, tx, t.ID, l.ItemID, l.Quantity)
		if err != nil {
			return nil, err
		}
		if err := applyLineEffect(ctx, tx, t, lineID, l.ItemID, l.Quantity); err != nil {
			return nil, err
		}
	}

	matched := false
	if warehouseToWarehouse(t) {
		matched, err = matchBatch(ctx, tx, batch, t.SenderID, t.ReceiverID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer creation: %w", err)
	}

	slog.Info("transfer created",
		"transfer_id", t.ID, "batch", batch,
		"sender", fmt.Sprintf("%s/%d", t.SenderKind, t.SenderID),
		"receiver", fmt.Sprintf("%s/%d", t.ReceiverKind, t.ReceiverID),
		"sender_initiated", t.SenderInitiated(),
		"matched", matched)

	return store.GetTransfer(ctx, db, t.ID)
}
