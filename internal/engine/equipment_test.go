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

func stockEquipment(t *testing.T, database *sql.DB, equipmentID, itemID int64, qty int) {
	t.Helper()
	if _, err := store.AddConsumable(context.Background(), database, equipmentID, itemID, qty, model.LedgerStatusHeld, nil); err != nil {
		t.Fatalf("AddConsumable: %v", err)
	}
}

func equipmentHeld(t *testing.T, database *sql.DB, equipmentID, itemID int64) int {
	t.Helper()
	qty, err := store.ConsumableBalance(context.Background(), database, equipmentID, itemID)
	if err != nil {
		t.Fatalf("ConsumableBalance: %v", err)
	}
	return qty
}

func TestEquipmentSenderEffectDeferred(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	rig := seedEquipment(t, database, "Drill rig")
	wh := seedWarehouse(t, database, "Warehouse A")
	item := seedItem(t, database, "Drill bit")
	stockEquipment(t, database, rig.ID, item.ID, 10)

	tr, err := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindEquipment, SenderID: rig.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: wh.ID,
		InitiatorID: rig.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 6}},
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}

	// Equipment deductions wait for reconciliation.
	if got := equipmentHeld(t, database, rig.ID, item.ID); got != 10 {
		t.Errorf("expected equipment balance untouched at creation, got %d", got)
	}

	got, err := AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, ReportedQty: 6}}, nil, "")
	if err != nil {
		t.Fatalf("AcceptTransfer: %v", err)
	}
	if got.Status != model.TransferStatusAccepted {
		t.Errorf("expected accepted, got %q", got.Status)
	}
	if got := equipmentHeld(t, database, rig.ID, item.ID); got != 4 {
		t.Errorf("expected equipment balance 4 after acceptance, got %d", got)
	}
	if h := held(t, database, wh.ID, item.ID); h != 6 {
		t.Errorf("expected warehouse credited 6, got %d", h)
	}
}

func TestEquipmentSenderInsufficientBalance(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	rig := seedEquipment(t, database, "Drill rig")
	wh := seedWarehouse(t, database, "Warehouse A")
	item := seedItem(t, database, "Drill bit")
	stockEquipment(t, database, rig.ID, item.ID, 3)

	_, err := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindEquipment, SenderID: rig.ID,
		ReceiverKind: model.PartyKindWarehouse, ReceiverID: wh.ID,
		InitiatorID: rig.ID,
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 4}},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestEquipmentReceiverConsumesOnAcceptance(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedWarehouse(t, database, "Warehouse A")
	rig := seedEquipment(t, database, "Drill rig")
	item := seedItem(t, database, "Drill bit")
	stock(t, database, wh.ID, item.ID, 20)

	tr, err := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: wh.ID,
		ReceiverKind: model.PartyKindEquipment, ReceiverID: rig.ID,
		InitiatorID: wh.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 8}},
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if h := held(t, database, wh.ID, item.ID); h != 12 {
		t.Errorf("expected warehouse deducted to 12 at creation, got %d", h)
	}

	if _, err := AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, ReportedQty: 8}}, nil, ""); err != nil {
		t.Fatalf("AcceptTransfer: %v", err)
	}

	// Stock received into equipment counts as consumed, not held.
	if got := equipmentHeld(t, database, rig.ID, item.ID); got != 0 {
		t.Errorf("expected no held consumables, got %d", got)
	}
	consumed, err := store.ListConsumables(ctx, database, rig.ID, item.ID, model.LedgerStatusConsumed)
	if err != nil {
		t.Fatalf("ListConsumables: %v", err)
	}
	if len(consumed) != 1 || consumed[0].Quantity != 8 {
		t.Errorf("expected one consumed entry of 8, got %+v", consumed)
	}
}

func TestEquipmentReceiverInitiatedNoCreationEffect(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedWarehouse(t, database, "Warehouse A")
	rig := seedEquipment(t, database, "Drill rig")
	item := seedItem(t, database, "Drill bit")
	stock(t, database, wh.ID, item.ID, 20)

	tr, err := CreateTransfer(ctx, database, CreateInput{
		SenderKind: model.PartyKindWarehouse, SenderID: wh.ID,
		ReceiverKind: model.PartyKindEquipment, ReceiverID: rig.ID,
		InitiatorID: rig.ID,
		BatchNumber: "B-1",
		Lines:       []LineInput{{ItemID: item.ID, Quantity: 8}},
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}

	// Neither side moves at creation for a receiver-initiated equipment record.
	if h := held(t, database, wh.ID, item.ID); h != 20 {
		t.Errorf("expected warehouse untouched, got %d", h)
	}
	entries, _ := store.ListConsumables(ctx, database, rig.ID, 0, "")
	if len(entries) != 0 {
		t.Errorf("expected no consumable entries, got %+v", entries)
	}

	// The sender confirms: warehouse deducts, equipment records consumption.
	if _, err := AcceptTransfer(ctx, database, tr.ID,
		[]LineReport{{LineID: tr.Lines[0].ID, ReportedQty: 8}}, nil, ""); err != nil {
		t.Fatalf("AcceptTransfer: %v", err)
	}
	if h := held(t, database, wh.ID, item.ID); h != 12 {
		t.Errorf("expected warehouse deducted to 12, got %d", h)
	}
	consumed, _ := store.ListConsumables(ctx, database, rig.ID, item.ID, model.LedgerStatusConsumed)
	if len(consumed) != 1 || consumed[0].Quantity != 8 {
		t.Errorf("expected one consumed entry of 8, got %+v", consumed)
	}
}
