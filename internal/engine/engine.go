// Package engine implements the inventory transfer reconciliation engine:
// transfer records with immediate ledger effects, automatic batch matching of
// two one-sided records describing the same movement, and reconciliation of
// claimed versus reported quantities with loss/over-receipt classification.
//
// Every public operation runs as a single SQLite transaction. Validation and
// state failures roll the whole unit back; discrepancies found while
// reconciling are expected outcomes and never abort the operation.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// LineInput is one item position supplied at create or update time.
type LineInput struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// LineReport is the counterparty's account of one line, supplied at
// acceptance. NotReceived marks the movement as never having happened for
// that line.
type LineReport struct {
	LineID      int64 `json:"line_id"`
	ReportedQty int   `json:"reported_qty"`
	NotReceived bool  `json:"not_received"`
}

// validateParties checks kinds and existence of both parties and the
// initiator assignment.
func validateParties(ctx context.Context, db store.DBTX, senderKind string, senderID int64, receiverKind string, receiverID, initiatorID int64) error {
	if !model.ValidPartyKind(senderKind) {
		return validationf("unknown sender kind %q", senderKind)
	}
	if !model.ValidPartyKind(receiverKind) {
		return validationf("unknown receiver kind %q", receiverKind)
	}
	if senderKind == receiverKind && senderID == receiverID {
		return validationf("sender and receiver are the same party")
	}
	if initiatorID != senderID && initiatorID != receiverID {
		return validationf("initiator %d is neither sender nor receiver", initiatorID)
	}

	ok, err := store.PartyExists(ctx, db, senderID, senderKind)
	if err != nil {
		return err
	}
	if !ok {
		return validationf("sender %s %d does not exist", senderKind, senderID)
	}

	ok, err = store.PartyExists(ctx, db, receiverID, receiverKind)
	if err != nil {
		return err
	}
	if !ok {
		return validationf("receiver %s %d does not exist", receiverKind, receiverID)
	}
	return nil
}

// validateLines checks quantities and item references.
func validateLines(ctx context.Context, db store.DBTX, lines []LineInput) error {
	if len(lines) == 0 {
		return validationf("transfer needs at least one line")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return validationf("line quantity must be positive, got %d", l.Quantity)
		}
		ok, err := store.ItemExists(ctx, db, l.ItemID)
		if err != nil {
			return err
		}
		if !ok {
			return validationf("item %d does not exist", l.ItemID)
		}
	}
	return nil
}

// applyLineEffect applies the immediate ledger effect of one pending line for
// the given quantity:
//
//   - sender-initiated, warehouse sender:  FIFO-deduct from the sender now
//   - sender-initiated, equipment sender:  availability check only (effect
//     deferred to acceptance)
//   - receiver-initiated, warehouse receiver: add a held lot to the receiver
//   - receiver-initiated, equipment receiver: nothing
func applyLineEffect(ctx context.Context, db store.DBTX, t *model.Transfer, lineID int64, itemID int64, qty int) error {
	if t.SenderInitiated() {
		if t.SenderKind == model.PartyKindWarehouse {
			if err := store.DeductFIFO(ctx, db, t.SenderID, itemID, qty); err != nil {
				return classifyDeduct(err, t.SenderID, itemID)
			}
			return nil
		}
		available, err := store.ConsumableBalance(ctx, db, t.SenderID, itemID)
		if err != nil {
			return err
		}
		if available < qty {
			return validationf("equipment %d has %d of item %d, need %d", t.SenderID, available, itemID, qty)
		}
		return nil
	}

	if t.ReceiverKind == model.PartyKindWarehouse {
		_, err := store.AddLot(ctx, db, t.ReceiverID, itemID, qty, model.LedgerStatusHeld, &lineID)
		return err
	}
	return nil
}

// reverseLineEffect undoes what applyLineEffect did for qty units.
func reverseLineEffect(ctx context.Context, db store.DBTX, t *model.Transfer, lineID int64, itemID int64, qty int) error {
	if t.SenderInitiated() {
		if t.SenderKind == model.PartyKindWarehouse {
			_, err := store.AddLot(ctx, db, t.SenderID, itemID, qty, model.LedgerStatusHeld, &lineID)
			return err
		}
		return nil // equipment effect was deferred, nothing to undo
	}

	if t.ReceiverKind == model.PartyKindWarehouse {
		if err := store.DeductFIFO(ctx, db, t.ReceiverID, itemID, qty); err != nil {
			return classifyDeduct(err, t.ReceiverID, itemID)
		}
	}
	return nil
}

// classifyDeduct turns an insufficient-stock failure into a ValidationError
// and passes other store errors through.
func classifyDeduct(err error, partyID, itemID int64) error {
	if errors.Is(err, store.ErrInsufficientStock) {
		return validationf("party %d, item %d: %v", partyID, itemID, err)
	}
	return fmt.Errorf("deducting stock: %w", err)
}

func warehouseToWarehouse(t *model.Transfer) bool {
	return t.SenderKind == model.PartyKindWarehouse && t.ReceiverKind == model.PartyKindWarehouse
}
