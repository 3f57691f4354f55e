package engine

import (
	"context"
	"log/slog"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// matchBatch looks for a complementary pair of pending one-sided records
// describing the same physical movement: same batch number, same (sender,
// receiver) pair, one created by the sender and one by the receiver. When
// both exist, the receiver-initiated record's claims become the reported
// quantities for the sender-initiated record, the receiver-initiated record
// is accepted as-is (its creation already credited the receiving warehouse),
// and the sender-initiated record is reconciled against those derived
// reports.
//
// Only warehouse-to-warehouse records are eligible; callers guard that. Runs
// inside the creating transaction, so a concurrent third record for the same
// batch cannot be matched twice.
func matchBatch(ctx context.Context, tx store.DBTX, batchNumber string, senderID, receiverID int64) (bool, error) {
	pending, err := store.PendingByBatch(ctx, tx, batchNumber, senderID, receiverID)
	if err != nil {
		return false, err
	}

	// At most one record per initiating side; the oldest wins. A skipped
	// record stays pending with its creation-time ledger effect applied, so
	// a double filing is worth an operator's attention.
	var senderRec, receiverRec *model.Transfer
	for i := range pending {
		t := &pending[i]
		if !warehouseToWarehouse(t) {
			continue
		}
		if t.SenderInitiated() {
			if senderRec == nil {
				senderRec = t
			} else {
				slog.Warn("duplicate sender-initiated record for batch left pending",
					"batch", batchNumber, "matched_record", senderRec.ID, "skipped_record", t.ID)
			}
		} else if receiverRec == nil {
			receiverRec = t
		} else {
			slog.Warn("duplicate receiver-initiated record for batch left pending",
				"batch", batchNumber, "matched_record", receiverRec.ID, "skipped_record", t.ID)
		}
	}
	if senderRec == nil || receiverRec == nil {
		return false, nil
	}

	receiverLines, err := store.GetLines(ctx, tx, receiverRec.ID)
	if err != nil {
		return false, err
	}
	senderRec.Lines, err = store.GetLines(ctx, tx, senderRec.ID)
	if err != nil {
		return false, err
	}

	// The receiver-initiated record is authoritative for what arrived. Its
	// claims, matched by item type, become the sender record's reports;
	// items it never mentioned were not received at all. When the sender
	// split one item across several lines, the per-item total is consumed
	// line by line in order, each line capped at its own claim; whatever is
	// left in the pool lands on that item's last line, so an over-receipt
	// still surfaces exactly once.
	claimedByItem := make(map[int64]int, len(receiverLines))
	for _, l := range receiverLines {
		claimedByItem[l.ItemID] += l.ClaimedQty
	}
	linesLeft := make(map[int64]int, len(senderRec.Lines))
	for _, l := range senderRec.Lines {
		linesLeft[l.ItemID]++
	}
	reports := make(map[int64]LineReport, len(senderRec.Lines))
	for _, l := range senderRec.Lines {
		linesLeft[l.ItemID]--
		take := claimedByItem[l.ItemID]
		if linesLeft[l.ItemID] > 0 && take > l.ClaimedQty {
			take = l.ClaimedQty
		}
		claimedByItem[l.ItemID] -= take
		reports[l.ID] = LineReport{LineID: l.ID, ReportedQty: take}
	}

	// Accept the receiver-initiated record with no further ledger effect.
	for _, l := range receiverLines {
		claimed := l.ClaimedQty
		if err := store.SetLineOutcome(ctx, tx, l.ID, &claimed,
			model.TransferStatusAccepted, ""); err != nil {
			return false, err
		}
	}
	if err := store.FinalizeTransfer(ctx, tx, receiverRec.ID,
		model.TransferStatusAccepted, nil, ""); err != nil {
		return false, err
	}

	status, err := reconcile(ctx, tx, senderRec, reconcileOpts{
		reports: reports,
		matched: true,
	})
	if err != nil {
		return false, err
	}

	slog.Info("transfers matched",
		"batch", batchNumber,
		"sender_record", senderRec.ID, "receiver_record", receiverRec.ID,
		"reconciled_status", status)
	return true, nil
}
