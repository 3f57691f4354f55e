package store

import (
	"context"
	"fmt"

	"github.com/erazemk/prenos/internal/model"
)

// AddConsumable inserts a consumable entry for a piece of equipment. As with
// warehouse lots every addition is its own row, but the consumable ledger
// makes no FIFO promise: only the held sum per (equipment, item) matters.
func AddConsumable(ctx context.Context, db DBTX, equipmentID, itemID int64, quantity int, status string, lineID *int64) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO consumable_entries (equipment_id, item_id, quantity, status, line_id)
		 VALUES (?, ?, ?, ?, ?)`,
		equipmentID, itemID, quantity, status, lineID,
	)
	if err != nil {
		return 0, fmt.Errorf("adding consumable entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting entry id: %w", err)
	}
	return id, nil
}

// ConsumableBalance returns the held balance for (equipment, item).
func ConsumableBalance(ctx context.Context, db DBTX, equipmentID, itemID int64) (int, error) {
	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM consumable_entries
		 WHERE equipment_id = ? AND item_id = ? AND status = 'held'`,
		equipmentID, itemID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing consumable balance: %w", err)
	}
	return total, nil
}

// DeductConsumable removes quantity units of held stock from an equipment
// balance. Rows are consumed in insertion order purely as bookkeeping; unlike
// warehouse lots no ordering is part of the contract. Fails if the held sum
// is insufficient.
func DeductConsumable(ctx context.Context, db DBTX, equipmentID, itemID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, quantity FROM consumable_entries
		 WHERE equipment_id = ? AND item_id = ? AND status = 'held'
		 ORDER BY id`,
		equipmentID, itemID,
	)
	if err != nil {
		return fmt.Errorf("loading consumable entries: %w", err)
	}
	defer rows.Close()

	type entry struct {
		id  int64
		qty int
	}
	var entries []entry
	available := 0
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.qty); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
		available += e.qty
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading consumable entries: %w", err)
	}

	if available < quantity {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientStock, available, quantity)
	}

	remaining := quantity
	for _, e := range entries {
		if remaining == 0 {
			break
		}
		if e.qty <= remaining {
			if _, err := db.ExecContext(ctx,
				`DELETE FROM consumable_entries WHERE id = ?`, e.id,
			); err != nil {
				return fmt.Errorf("removing consumed entry: %w", err)
			}
			remaining -= e.qty
		} else {
			if _, err := db.ExecContext(ctx,
				`UPDATE consumable_entries SET quantity = quantity - ? WHERE id = ?`, remaining, e.id,
			); err != nil {
				return fmt.Errorf("reducing entry: %w", err)
			}
			remaining = 0
		}
	}
	return nil
}

// ListConsumables returns consumable entries for a piece of equipment,
// optionally filtered by item and status.
func ListConsumables(ctx context.Context, db DBTX, equipmentID, itemID int64, status string) ([]model.ConsumableEntry, error) {
	query := `SELECT c.id, c.equipment_id, c.item_id, c.quantity, c.status, c.line_id,
	                 c.resolved, c.created_at, i.name AS item_name
	          FROM consumable_entries c
	          JOIN items i ON i.id = c.item_id
	          WHERE c.equipment_id = ?`
	args := []any{equipmentID}

	if itemID > 0 {
		query += ` AND c.item_id = ?`
		args = append(args, itemID)
	}
	if status != "" {
		query += ` AND c.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY c.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing consumables: %w", err)
	}
	defer rows.Close()

	var entries []model.ConsumableEntry
	for rows.Next() {
		var e model.ConsumableEntry
		if err := rows.Scan(&e.ID, &e.EquipmentID, &e.ItemID, &e.Quantity, &e.Status,
			&e.LineID, &e.Resolved, &e.CreatedAt, &e.ItemName); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EquipmentBalances returns the held balance per item for a piece of equipment.
func EquipmentBalances(ctx context.Context, db DBTX, equipmentID int64) ([]model.Balance, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.equipment_id, c.item_id, SUM(c.quantity), i.name AS item_name
		 FROM consumable_entries c
		 JOIN items i ON i.id = c.item_id
		 WHERE c.equipment_id = ? AND c.status = 'held'
		 GROUP BY c.item_id
		 ORDER BY i.name`, equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing equipment balances: %w", err)
	}
	defer rows.Close()

	var balances []model.Balance
	for rows.Next() {
		var b model.Balance
		if err := rows.Scan(&b.PartyID, &b.ItemID, &b.Quantity, &b.ItemName); err != nil {
			return nil, fmt.Errorf("scanning balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
