package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/erazemk/prenos/internal/db"
	"github.com/erazemk/prenos/internal/model"
)

func seedParty(t *testing.T, database *sql.DB, name, kind string) *model.Party {
	t.Helper()
	p, err := CreateParty(context.Background(), database, name, kind, "")
	if err != nil {
		t.Fatalf("CreateParty(%s): %v", name, err)
	}
	return p
}

func seedItem(t *testing.T, database *sql.DB, name string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, name, "", "pcs")
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", name, err)
	}
	return item
}

func TestAddLotAndHeldQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedParty(t, database, "Main warehouse", model.PartyKindWarehouse)
	item := seedItem(t, database, "Bolt M8")

	if _, err := AddLot(ctx, database, wh.ID, item.ID, 40, model.LedgerStatusHeld, nil); err != nil {
		t.Fatalf("AddLot: %v", err)
	}
	if _, err := AddLot(ctx, database, wh.ID, item.ID, 25, model.LedgerStatusHeld, nil); err != nil {
		t.Fatalf("AddLot: %v", err)
	}

	qty, err := HeldQuantity(ctx, database, wh.ID, item.ID)
	if err != nil {
		t.Fatalf("HeldQuantity: %v", err)
	}
	if qty != 65 {
		t.Errorf("expected held 65, got %d", qty)
	}
}

func TestAddLotNeverMerges(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedParty(t, database, "Main warehouse", model.PartyKindWarehouse)
	item := seedItem(t, database, "Bolt M8")

	AddLot(ctx, database, wh.ID, item.ID, 10, model.LedgerStatusHeld, nil)
	AddLot(ctx, database, wh.ID, item.ID, 10, model.LedgerStatusHeld, nil)
	AddLot(ctx, database, wh.ID, item.ID, 10, model.LedgerStatusHeld, nil)

	lots, err := ListLots(ctx, database, wh.ID, item.ID, model.LedgerStatusHeld)
	if err != nil {
		t.Fatalf("ListLots: %v", err)
	}
	if len(lots) != 3 {
		t.Errorf("expected 3 separate lots, got %d", len(lots))
	}
}

func TestDeductFIFOOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedParty(t, database, "Main warehouse", model.PartyKindWarehouse)
	item := seedItem(t, database, "Bolt M8")

	first, _ := AddLot(ctx, database, wh.ID, item.ID, 30, model.LedgerStatusHeld, nil)
	second, _ := AddLot(ctx, database, wh.ID, item.ID, 50, model.LedgerStatusHeld, nil)

	// 30 from the first lot, 10 from the second.
	if err := DeductFIFO(ctx, database, wh.ID, item.ID, 40); err != nil {
		t.Fatalf("DeductFIFO: %v", err)
	}

	lots, err := ListLots(ctx, database, wh.ID, item.ID, model.LedgerStatusHeld)
	if err != nil {
		t.Fatalf("ListLots: %v", err)
	}
	if len(lots) != 1 {
		t.Fatalf("expected 1 remaining lot, got %d", len(lots))
	}
	if lots[0].ID == first {
		t.Error("oldest lot should have been fully consumed")
	}
	if lots[0].ID != second {
		t.Errorf("expected remaining lot %d, got %d", second, lots[0].ID)
	}
	if lots[0].Quantity != 40 {
		t.Errorf("expected boundary lot reduced to 40, got %d", lots[0].Quantity)
	}
}

func TestDeductFIFOExactLot(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedParty(t, database, "Main warehouse", model.PartyKindWarehouse)
	item := seedItem(t, database, "Bolt M8")

	AddLot(ctx, database, wh.ID, item.ID, 30, model.LedgerStatusHeld, nil)
	AddLot(ctx, database, wh.ID, item.ID, 20, model.LedgerStatusHeld, nil)

	if err := DeductFIFO(ctx, database, wh.ID, item.ID, 30); err != nil {
		t.Fatalf("DeductFIFO: %v", err)
	}

	lots, _ := ListLots(ctx, database, wh.ID, item.ID, model.LedgerStatusHeld)
	if len(lots) != 1 || lots[0].Quantity != 20 {
		t.Errorf("expected one untouched lot of 20, got %+v", lots)
	}
}

func TestDeductFIFOInsufficient(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedParty(t, database, "Main warehouse", model.PartyKindWarehouse)
	item := seedItem(t, database, "Bolt M8")

	AddLot(ctx, database, wh.ID, item.ID, 15, model.LedgerStatusHeld, nil)

	err := DeductFIFO(ctx, database, wh.ID, item.ID, 20)
	if err == nil {
		t.Fatal("expected error for insufficient stock")
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}

	// Failed deduction must not touch the ledger.
	qty, _ := HeldQuantity(ctx, database, wh.ID, item.ID)
	if qty != 15 {
		t.Errorf("expected held 15 after failed deduction, got %d", qty)
	}
}

func TestDeductFIFOIgnoresDiscrepancyLots(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedParty(t, database, "Main warehouse", model.PartyKindWarehouse)
	item := seedItem(t, database, "Bolt M8")

	AddLot(ctx, database, wh.ID, item.ID, 10, model.LedgerStatusHeld, nil)
	AddLot(ctx, database, wh.ID, item.ID, 50, model.LedgerStatusMissing, nil)
	AddLot(ctx, database, wh.ID, item.ID, 50, model.LedgerStatusOverReceived, nil)

	if err := DeductFIFO(ctx, database, wh.ID, item.ID, 20); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("discrepancy lots must not be spendable, got %v", err)
	}
}

func TestDiscrepancyLotsAndResolve(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedParty(t, database, "Main warehouse", model.PartyKindWarehouse)
	other := seedParty(t, database, "Remote warehouse", model.PartyKindWarehouse)
	item := seedItem(t, database, "Bolt M8")

	lotID, _ := AddLot(ctx, database, wh.ID, item.ID, 5, model.LedgerStatusMissing, nil)
	AddLot(ctx, database, other.ID, item.ID, 3, model.LedgerStatusOverReceived, nil)
	AddLot(ctx, database, wh.ID, item.ID, 100, model.LedgerStatusHeld, nil)

	all, err := ListDiscrepancyLots(ctx, database, 0)
	if err != nil {
		t.Fatalf("ListDiscrepancyLots: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 discrepancies, got %d", len(all))
	}

	scoped, err := ListDiscrepancyLots(ctx, database, wh.ID)
	if err != nil {
		t.Fatalf("ListDiscrepancyLots scoped: %v", err)
	}
	if len(scoped) != 1 {
		t.Fatalf("expected 1 discrepancy for warehouse, got %d", len(scoped))
	}
	if scoped[0].Status != model.LedgerStatusMissing {
		t.Errorf("expected missing lot, got %s", scoped[0].Status)
	}

	if err := ResolveLot(ctx, database, lotID); err != nil {
		t.Fatalf("ResolveLot: %v", err)
	}
	scoped, _ = ListDiscrepancyLots(ctx, database, wh.ID)
	if len(scoped) != 0 {
		t.Errorf("expected no unresolved discrepancies after resolve, got %d", len(scoped))
	}
}

func TestResolveLotRejectsHeld(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedParty(t, database, "Main warehouse", model.PartyKindWarehouse)
	item := seedItem(t, database, "Bolt M8")

	lotID, _ := AddLot(ctx, database, wh.ID, item.ID, 5, model.LedgerStatusHeld, nil)
	if err := ResolveLot(ctx, database, lotID); err == nil {
		t.Error("expected error when resolving a held lot")
	}
}

func TestWarehouseBalances(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh := seedParty(t, database, "Main warehouse", model.PartyKindWarehouse)
	bolts := seedItem(t, database, "Bolt M8")
	nuts := seedItem(t, database, "Nut M8")

	AddLot(ctx, database, wh.ID, bolts.ID, 40, model.LedgerStatusHeld, nil)
	AddLot(ctx, database, wh.ID, bolts.ID, 10, model.LedgerStatusHeld, nil)
	AddLot(ctx, database, wh.ID, nuts.ID, 7, model.LedgerStatusHeld, nil)
	AddLot(ctx, database, wh.ID, nuts.ID, 99, model.LedgerStatusMissing, nil)

	balances, err := WarehouseBalances(ctx, database, wh.ID)
	if err != nil {
		t.Fatalf("WarehouseBalances: %v", err)
	}
	got := map[int64]int{}
	for _, b := range balances {
		got[b.ItemID] = b.Quantity
	}
	if got[bolts.ID] != 50 {
		t.Errorf("expected bolts balance 50, got %d", got[bolts.ID])
	}
	if got[nuts.ID] != 7 {
		t.Errorf("expected nuts balance 7 (missing lots excluded), got %d", got[nuts.ID])
	}
}
