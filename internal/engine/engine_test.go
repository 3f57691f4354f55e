package engine

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/erazemk/prenos/internal/db"
	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

func seedWarehouse(t *testing.T, database *sql.DB, name string) *model.Party {
	t.Helper()
	p, err := store.CreateParty(context.Background(), database, name, model.PartyKindWarehouse, "")
	if err != nil {
		t.Fatalf("CreateParty(%s): %v", name, err)
	}
	return p
}

func seedEquipment(t *testing.T, database *sql.DB, name string) *model.Party {
	t.Helper()
	p, err := store.CreateParty(context.Background(), database, name, model.PartyKindEquipment, "")
	if err != nil {
		t.Fatalf("CreateParty(%s): %v", name, err)
	}
	return p
}

func seedItem(t *testing.T, database *sql.DB, name string) *model.Item {
	t.Helper()
	item, err := store.CreateItem(context.Background(), database, name, "", "pcs")
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", name, err)
	}
	return item
}

func stock(t *testing.T, database *sql.DB, warehouseID, itemID int64, qty int) {
	t.Helper()
	if _, err := store.AddLot(context.Background(), database, warehouseID, itemID, qty, model.LedgerStatusHeld, nil); err != nil {
		t.Fatalf("AddLot: %v", err)
	}
}

func held(t *testing.T, database *sql.DB, warehouseID, itemID int64) int {
	t.Helper()
	qty, err := store.HeldQuantity(context.Background(), database, warehouseID, itemID)
	if err != nil {
		t.Fatalf("HeldQuantity: %v", err)
	}
	return qty
}

func discrepancies(t *testing.T, database *sql.DB, warehouseID int64) []model.StockLot {
	t.Helper()
	lots, err := store.ListDiscrepancyLots(context.Background(), database, warehouseID)
	if err != nil {
		t.Fatalf("ListDiscrepancyLots: %v", err)
	}
	return lots
}

func TestCreateSenderInitiatedDeductsImmediately(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")
	stock(t, database, a.ID, item.ID, 100)

	tr, err := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
		InitiatorID: a.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 80}},
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if tr.Status != model.TransferStatusPending {
		t.Errorf("expected pending, got %q", tr.Status)
	}
	if got := held(t, database, a.ID, item.ID); got != 20 {
		t.Errorf("expected sender held 20 after immediate deduction, got %d", got)
	}
	if got := held(t, database, b.ID, item.ID); got != 0 {
		t.Errorf("receiver must not be credited at creation, got %d", got)
	}
}

func TestCreateInsufficientStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")
	stock(t, database, a.ID, item.ID, 10)

	_, err := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
		InitiatorID: a.ID,
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 11}},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// Whole creation must roll back.
	transfers, _ := store.ListTransfers(ctx, database, store.TransferFilter{})
	if len(transfers) != 0 {
		t.Errorf("expected no transfer recorded, got %d", len(transfers))
	}
	if got := held(t, database, a.ID, item.ID); got != 10 {
		t.Errorf("expected stock untouched, got %d", got)
	}
}

func TestCreateReceiverInitiatedAddsHeldLot(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")

	_, err := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
		InitiatorID: b.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 70}},
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if got := held(t, database, b.ID, item.ID); got != 70 {
		t.Errorf("expected receiver credited 70 at creation, got %d", got)
	}
	// Sender ledger untouched until the sender's side of the story arrives.
	if got := held(t, database, a.ID, item.ID); got != 0 {
		t.Errorf("expected sender untouched, got %d", got)
	}
}

func TestCreateValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")
	stock(t, database, a.ID, item.ID, 100)

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"unknown sender", CreateInput{
			SenderKind: model.PartyKindWarehouse, SenderID: 999,
			ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
			InitiatorID: 999,
			Lines:       []LineInput{{ItemID: item.ID, Quantity: 1}},
		}},
		{"bad sender kind", CreateInput{
			SenderKind: "truck", SenderID: a.ID,
			ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
			InitiatorID: a.ID,
			Lines:       []LineInput{{ItemID: item.ID, Quantity: 1}},
		}},
		{"same party both sides", CreateInput{
			SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
			ReceiverKind: model.PartyKindWarehouse, ReceiverID: a.ID,
			InitiatorID: a.ID,
			Lines:       []LineInput{{ItemID: item.ID, Quantity: 1}},
		}},
		{"initiator is third party", CreateInput{
			SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
			ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
			InitiatorID: 999,
			Lines:       []LineInput{{ItemID: item.ID, Quantity: 1}},
		}},
		{"unknown item", CreateInput{
			SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
			ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
			InitiatorID: a.ID,
			Lines:       []LineInput{{ItemID: 999, Quantity: 1}},
		}},
		{"zero quantity", CreateInput{
			SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
			ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
			InitiatorID: a.ID,
			Lines:       []LineInput{{ItemID: item.ID, Quantity: 0}},
		}},
		{"no lines", CreateInput{
			SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
			ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
			InitiatorID: a.ID,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateTransfer(ctx, database, tc.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestAcceptEqualQuantities(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")
	stock(t, database, a.ID, item.ID, 100)

	tr, err := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
		InitiatorID: a.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 80}},
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}

	got, err := AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, ReportedQty: 80}}, nil, "")
	if err != nil {
		t.Fatalf("AcceptTransfer: %v", err)
	}
	if got.Status != model.TransferStatusAccepted {
		t.Errorf("expected accepted, got %q", got.Status)
	}
	if got.Lines[0].Status != model.TransferStatusAccepted {
		t.Errorf("expected accepted line, got %q", got.Lines[0].Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at set")
	}
	if h := held(t, database, a.ID, item.ID); h != 20 {
		t.Errorf("expected sender 20, got %d", h)
	}
	if h := held(t, database, b.ID, item.ID); h != 80 {
		t.Errorf("expected receiver 80, got %d", h)
	}
	if d := discrepancies(t, database, 0); len(d) != 0 {
		t.Errorf("expected no discrepancies, got %+v", d)
	}
}

func TestAcceptShortfallRecordsMissing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")
	stock(t, database, a.ID, item.ID, 100)

	tr, _ := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
		InitiatorID: a.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 80}},
	})

	got, err := AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, ReportedQty: 70}}, nil, "")
	if err != nil {
		t.Fatalf("AcceptTransfer: %v", err)
	}
	if got.Status != model.TransferStatusRejected {
		t.Errorf("expected rejected, got %q", got.Status)
	}
	if got.Lines[0].RejectReason != model.RejectReasonQuantityMismatch {
		t.Errorf("expected quantity mismatch reason, got %q", got.Lines[0].RejectReason)
	}

	// Conservation: 20 held at A + 70 held at B + 10 missing at A = 100.
	if h := held(t, database, a.ID, item.ID); h != 20 {
		t.Errorf("expected sender 20, got %d", h)
	}
	if h := held(t, database, b.ID, item.ID); h != 70 {
		t.Errorf("expected receiver 70, got %d", h)
	}
	d := discrepancies(t, database, a.ID)
	if len(d) != 1 || d[0].Status != model.LedgerStatusMissing || d[0].Quantity != 10 {
		t.Errorf("expected missing lot of 10 at sender, got %+v", d)
	}
}

func TestAcceptOverReceipt(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")
	stock(t, database, a.ID, item.ID, 100)

	tr, _ := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
		InitiatorID: a.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 80}},
	})

	got, err := AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, ReportedQty: 90}}, nil, "")
	if err != nil {
		t.Fatalf("AcceptTransfer: %v", err)
	}
	if got.Status != model.TransferStatusRejected {
		t.Errorf("expected rejected, got %q", got.Status)
	}

	if h := held(t, database, b.ID, item.ID); h != 90 {
		t.Errorf("expected receiver 90, got %d", h)
	}
	d := discrepancies(t, database, b.ID)
	if len(d) != 1 || d[0].Status != model.LedgerStatusOverReceived || d[0].Quantity != 10 {
		t.Errorf("expected over-received lot of 10 at receiver, got %+v", d)
	}
}

func TestAcceptNotReceivedReversesInFull(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")
	stock(t, database, a.ID, item.ID, 100)

	tr, _ := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
		InitiatorID: a.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 80}},
	})

	got, err := AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, NotReceived: true}}, nil, "")
	if err != nil {
		t.Fatalf("AcceptTransfer: %v", err)
	}
	if got.Status != model.TransferStatusRejected {
		t.Errorf("expected rejected, got %q", got.Status)
	}
	if got.Lines[0].RejectReason != model.RejectReasonNotReceived {
		t.Errorf("expected not received reason, got %q", got.Lines[0].RejectReason)
	}
	if h := held(t, database, a.ID, item.ID); h != 100 {
		t.Errorf("expected sender restored to 100, got %d", h)
	}
	if h := held(t, database, b.ID, item.ID); h != 0 {
		t.Errorf("expected receiver 0, got %d", h)
	}
	if d := discrepancies(t, database, 0); len(d) != 0 {
		t.Errorf("not-received must record no discrepancy, got %+v", d)
	}
}

func TestAcceptGuards(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")
	stock(t, database, a.ID, item.ID, 100)

	_, err := AcceptTransfer(ctx, database, 999, nil, nil, "")
	var nferr *NotFoundError
	if !errors.As(err, &nferr) {
		t.Errorf("expected NotFoundError for unknown transfer, got %v", err)
	}

	tr, _ := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
		InitiatorID: a.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 10}},
	})

	_, err = AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: 999, ReportedQty: 10}}, nil, "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for foreign line report, got %v", err)
	}

	_, err = AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, ReportedQty: -1}}, nil, "")
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for negative report, got %v", err)
	}

	// Reconciling twice is an illegal state, not a no-op.
	if _, err := AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, ReportedQty: 10}}, nil, ""); err != nil {
		t.Fatalf("AcceptTransfer: %v", err)
	}
	_, err = AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, ReportedQty: 10}}, nil, "")
	var iserr *IllegalStateError
	if !errors.As(err, &iserr) {
		t.Errorf("expected IllegalStateError on second reconciliation, got %v", err)
	}
}

func TestRejectLeavesLedgersUntouched(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedWarehouse(t, database, "Warehouse A")
	b := seedWarehouse(t, database, "Warehouse B")
	item := seedItem(t, database, "Bolt M8")
	stock(t, database, a.ID, item.ID, 100)

	tr, _ := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: a.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: b.ID,
		InitiatorID: a.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 80}},
	})

	got, err := RejectTransfer(ctx, database, tr.ID, "paperwork error", nil)
	if err != nil {
		t.Fatalf("RejectTransfer: %v", err)
	}
	if got.Status != model.TransferStatusRejected {
		t.Errorf("expected rejected, got %q", got.Status)
	}
	if got.Lines[0].Status != model.TransferStatusRejected {
		t.Errorf("expected rejected line, got %q", got.Lines[0].Status)
	}

	// Direct rejection classifies the record; it does not move stock.
	if h := held(t, database, a.ID, item.ID); h != 20 {
		t.Errorf("expected sender still at 20, got %d", h)
	}
	if h := held(t, database, b.ID, item.ID); h != 0 {
		t.Errorf("expected receiver 0, got %d", h)
	}

	_, err = RejectTransfer(ctx, database, tr.ID, "again", nil)
	var iserr *IllegalStateError
	if !errors.As(err, &iserr) {
		t.Errorf("expected IllegalStateError on second rejection, got %v", err)
	}
}
