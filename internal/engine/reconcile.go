package engine

import (
	"context"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// reconcileOpts parameterizes one reconciliation run.
type reconcileOpts struct {
	reports map[int64]LineReport // keyed by line id; absent lines report zero
	// matched suppresses the counterparty warehouse addition: the batch
	// matcher already credited the receiver through the matched record's own
	// creation effect.
	matched    bool
	approvedBy *int64
	comment    string
}

// reconcile applies the counterparty's reports to a pending transfer: it
// classifies each line, corrects both ledgers to the agreed final facts, and
// records discrepancy entries. Mismatches reject lines (and the record) but
// never fail the operation; the ledger corrections stand regardless of the
// classification. Returns the record's final status.
//
// Runs inside the caller's transaction.
func reconcile(ctx context.Context, tx store.DBTX, t *model.Transfer, opts reconcileOpts) (string, error) {
	allAccepted := true

	for _, line := range t.Lines {
		rep := opts.reports[line.ID]

		// A "not sent/received" flag means the movement never happened for
		// this line: reverse the original immediate effect in full and
		// record no discrepancy.
		if rep.NotReceived {
			if err := store.SetLineOutcome(ctx, tx, line.ID, nil,
				model.TransferStatusRejected, model.RejectReasonNotReceived); err != nil {
				return "", err
			}
			if err := reverseLineEffect(ctx, tx, t, line.ID, line.ItemID, line.ClaimedQty); err != nil {
				return "", err
			}
			allAccepted = false
			continue
		}

		if rep.ReportedQty < 0 {
			return "", validationf("line %d: reported quantity must not be negative", line.ID)
		}
		reported := rep.ReportedQty

		// Orient the two claims: the initiator's figure is the line's
		// original claim, the counterparty's is the report supplied now.
		var senderClaimed, receiverClaimed int
		if t.SenderInitiated() {
			senderClaimed, receiverClaimed = line.ClaimedQty, reported
		} else {
			senderClaimed, receiverClaimed = reported, line.ClaimedQty
		}

		lineStatus := model.TransferStatusAccepted
		reason := ""
		if senderClaimed != receiverClaimed {
			lineStatus = model.TransferStatusRejected
			reason = model.RejectReasonQuantityMismatch
			allAccepted = false
		}
		if err := store.SetLineOutcome(ctx, tx, line.ID, &reported, lineStatus, reason); err != nil {
			return "", err
		}

		if err := correctLedgers(ctx, tx, t, line, senderClaimed, receiverClaimed, opts.matched); err != nil {
			return "", err
		}
	}

	status := model.TransferStatusAccepted
	if !allAccepted {
		status = model.TransferStatusRejected
	}
	if err := store.FinalizeTransfer(ctx, tx, t.ID, status, opts.approvedBy, opts.comment); err != nil {
		return "", err
	}
	return status, nil
}

// correctLedgers moves both sides to the agreed final state for one line.
// The originating side was already mutated at creation under the original
// claim (which equals its agreed figure, since the update operation keeps
// claims and ledger in sync), so only the counterparty side needs its real
// effect applied here, plus deferred equipment effects and discrepancy
// entries.
func correctLedgers(ctx context.Context, tx store.DBTX, t *model.Transfer, line model.TransferLine, senderClaimed, receiverClaimed int, matched bool) error {
	if t.SenderInitiated() {
		// Counterparty is the receiver.
		if receiverClaimed > 0 {
			switch {
			case t.ReceiverKind == model.PartyKindWarehouse && !matched:
				if _, err := store.AddLot(ctx, tx, t.ReceiverID, line.ItemID,
					receiverClaimed, model.LedgerStatusHeld, &line.ID); err != nil {
					return err
				}
			case t.ReceiverKind == model.PartyKindEquipment:
				// Stock received into equipment is consumed by it.
				if _, err := store.AddConsumable(ctx, tx, t.ReceiverID, line.ItemID,
					receiverClaimed, model.LedgerStatusConsumed, &line.ID); err != nil {
					return err
				}
			}
		}
		// Deferred equipment sender effect.
		if t.SenderKind == model.PartyKindEquipment && senderClaimed > 0 {
			if err := store.DeductConsumable(ctx, tx, t.SenderID, line.ItemID, senderClaimed); err != nil {
				return classifyDeduct(err, t.SenderID, line.ItemID)
			}
		}
	} else {
		// Counterparty is the sender.
		if senderClaimed > 0 {
			if t.SenderKind == model.PartyKindWarehouse {
				if err := store.DeductFIFO(ctx, tx, t.SenderID, line.ItemID, senderClaimed); err != nil {
					return classifyDeduct(err, t.SenderID, line.ItemID)
				}
			} else {
				if err := store.DeductConsumable(ctx, tx, t.SenderID, line.ItemID, senderClaimed); err != nil {
					return classifyDeduct(err, t.SenderID, line.ItemID)
				}
			}
		}
		// Deferred equipment receiver effect.
		if t.ReceiverKind == model.PartyKindEquipment && receiverClaimed > 0 {
			if _, err := store.AddConsumable(ctx, tx, t.ReceiverID, line.ItemID,
				receiverClaimed, model.LedgerStatusConsumed, &line.ID); err != nil {
				return err
			}
		}
	}

	// Discrepancy entries: loss in transit lands at the sender, over-receipt
	// at the receiver. Exactly one of the two can fire per line.
	switch {
	case senderClaimed > receiverClaimed:
		diff := senderClaimed - receiverClaimed
		if t.SenderKind == model.PartyKindWarehouse {
			if _, err := store.AddLot(ctx, tx, t.SenderID, line.ItemID,
				diff, model.LedgerStatusMissing, &line.ID); err != nil {
				return err
			}
		} else {
			if _, err := store.AddConsumable(ctx, tx, t.SenderID, line.ItemID,
				diff, model.LedgerStatusMissing, &line.ID); err != nil {
				return err
			}
		}
	case receiverClaimed > senderClaimed:
		diff := receiverClaimed - senderClaimed
		if t.ReceiverKind == model.PartyKindWarehouse {
			if _, err := store.AddLot(ctx, tx, t.ReceiverID, line.ItemID,
				diff, model.LedgerStatusOverReceived, &line.ID); err != nil {
				return err
			}
		} else {
			if _, err := store.AddConsumable(ctx, tx, t.ReceiverID, line.ItemID,
				diff, model.LedgerStatusOverReceived, &line.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
