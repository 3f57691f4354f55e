package store

import (
	"context"
	"testing"

	"github.com/erazemk/prenos/internal/db"
	"github.com/erazemk/prenos/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "Bolt M8", "Hex bolt, 8mm", "pcs")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got == nil {
		t.Fatal("expected item, got nil")
	}
	if got.Name != "Bolt M8" || got.Unit != "pcs" {
		t.Errorf("unexpected item: %+v", got)
	}
}

func TestUpdateItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := seedItem(t, database, "Bolt M8")

	if err := UpdateItem(ctx, database, item.ID, "Bolt M10", "larger", "box", "active"); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Name != "Bolt M10" || got.Unit != "box" {
		t.Errorf("unexpected item after update: %+v", got)
	}
}

func TestDeleteItemHidesFromList(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := seedItem(t, database, "Bolt M8")
	seedItem(t, database, "Nut M8")

	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	items, err := ListItems(ctx, database, "")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Nut M8" {
		t.Errorf("expected deleted item hidden, got %+v", items)
	}
}

func TestItemImageRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := seedItem(t, database, "Bolt M8")

	data := []byte{0xff, 0xd8, 0x01, 0x02}
	if err := SetItemImage(ctx, database, item.ID, data, "image/jpeg"); err != nil {
		t.Fatalf("SetItemImage: %v", err)
	}

	got, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if mime != "image/jpeg" || len(got) != len(data) {
		t.Errorf("unexpected image: mime=%q len=%d", mime, len(got))
	}
}

func TestGetItemHistory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := seedParty(t, database, "Warehouse A", model.PartyKindWarehouse)
	b := seedParty(t, database, "Warehouse B", model.PartyKindWarehouse)
	bolts := seedItem(t, database, "Bolt M8")
	nuts := seedItem(t, database, "Nut M8")

	withBolts := seedTransfer(t, database, "B-1", a, b, a.ID)
	InsertLine(ctx, database, withBolts.ID, bolts.ID, 5)

	withNuts := seedTransfer(t, database, "B-2", a, b, a.ID)
	InsertLine(ctx, database, withNuts.ID, nuts.ID, 5)

	history, err := GetItemHistory(ctx, database, bolts.ID)
	if err != nil {
		t.Fatalf("GetItemHistory: %v", err)
	}
	if len(history) != 1 || history[0].ID != withBolts.ID {
		t.Errorf("expected only the bolts transfer, got %+v", history)
	}
}
