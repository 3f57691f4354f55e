package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/erazemk/prenos/internal/model"
)

// ErrInsufficientStock is returned by deductions when the held balance cannot
// cover the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// AddLot inserts a new stock lot. Lots are never merged: every addition gets
// its own row so FIFO ordering and traceability to the producing transfer
// line are preserved.
func AddLot(ctx context.Context, db DBTX, warehouseID, itemID int64, quantity int, status string, lineID *int64) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO stock_lots (warehouse_id, item_id, quantity, status, line_id)
		 VALUES (?, ?, ?, ?, ?)`,
		warehouseID, itemID, quantity, status, lineID,
	)
	if err != nil {
		return 0, fmt.Errorf("adding stock lot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting lot id: %w", err)
	}
	return id, nil
}

// HeldQuantity returns the spendable balance for (warehouse, item): the sum
// of held lot quantities. Missing and over-received lots never count.
func HeldQuantity(ctx context.Context, db DBTX, warehouseID, itemID int64) (int, error) {
	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_lots
		 WHERE warehouse_id = ? AND item_id = ? AND status = 'held'`,
		warehouseID, itemID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing held quantity: %w", err)
	}
	return total, nil
}

// DeductFIFO consumes quantity units of held stock, oldest lots first. Lots
// with a NULL creation timestamp sort last; ties break on id so consumption
// order is deterministic. Fully used lots are deleted, the boundary lot's
// quantity is reduced. Fails without touching anything if the held sum is
// insufficient (callers run this inside a transaction).
func DeductFIFO(ctx context.Context, db DBTX, warehouseID, itemID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, quantity FROM stock_lots
		 WHERE warehouse_id = ? AND item_id = ? AND status = 'held'
		 ORDER BY created_at IS NULL, created_at, id`,
		warehouseID, itemID,
	)
	if err != nil {
		return fmt.Errorf("loading held lots: %w", err)
	}
	defer rows.Close()

	type lot struct {
		id  int64
		qty int
	}
	var lots []lot
	available := 0
	for rows.Next() {
		var l lot
		if err := rows.Scan(&l.id, &l.qty); err != nil {
			return fmt.Errorf("scanning lot: %w", err)
		}
		lots = append(lots, l)
		available += l.qty
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading held lots: %w", err)
	}

	if available < quantity {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientStock, available, quantity)
	}

	remaining := quantity
	for _, l := range lots {
		if remaining == 0 {
			break
		}
		if l.qty <= remaining {
			if _, err := db.ExecContext(ctx,
				`DELETE FROM stock_lots WHERE id = ?`, l.id,
			); err != nil {
				return fmt.Errorf("removing consumed lot: %w", err)
			}
			remaining -= l.qty
		} else {
			if _, err := db.ExecContext(ctx,
				`UPDATE stock_lots SET quantity = quantity - ? WHERE id = ?`, remaining, l.id,
			); err != nil {
				return fmt.Errorf("reducing boundary lot: %w", err)
			}
			remaining = 0
		}
	}
	return nil
}

// ListLots returns lots for a warehouse in FIFO order, optionally filtered by
// item and status.
func ListLots(ctx context.Context, db DBTX, warehouseID, itemID int64, status string) ([]model.StockLot, error) {
	query := `SELECT l.id, l.warehouse_id, l.item_id, l.quantity, l.status, l.line_id,
	                 l.resolved, l.created_at, i.name AS item_name
	          FROM stock_lots l
	          JOIN items i ON i.id = l.item_id
	          WHERE l.warehouse_id = ?`
	args := []any{warehouseID}

	if itemID > 0 {
		query += ` AND l.item_id = ?`
		args = append(args, itemID)
	}
	if status != "" {
		query += ` AND l.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY l.created_at IS NULL, l.created_at, l.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	defer rows.Close()

	var lots []model.StockLot
	for rows.Next() {
		var l model.StockLot
		if err := rows.Scan(&l.ID, &l.WarehouseID, &l.ItemID, &l.Quantity, &l.Status,
			&l.LineID, &l.Resolved, &l.CreatedAt, &l.ItemName); err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// ListDiscrepancyLots returns unresolved missing and over-received lots,
// optionally restricted to one warehouse.
func ListDiscrepancyLots(ctx context.Context, db DBTX, warehouseID int64) ([]model.StockLot, error) {
	query := `SELECT l.id, l.warehouse_id, l.item_id, l.quantity, l.status, l.line_id,
	                 l.resolved, l.created_at, i.name AS item_name
	          FROM stock_lots l
	          JOIN items i ON i.id = l.item_id
	          WHERE l.status IN ('missing', 'over_received') AND l.resolved = 0`
	var args []any

	if warehouseID > 0 {
		query += ` AND l.warehouse_id = ?`
		args = append(args, warehouseID)
	}
	query += ` ORDER BY l.created_at IS NULL, l.created_at, l.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing discrepancy lots: %w", err)
	}
	defer rows.Close()

	var lots []model.StockLot
	for rows.Next() {
		var l model.StockLot
		if err := rows.Scan(&l.ID, &l.WarehouseID, &l.ItemID, &l.Quantity, &l.Status,
			&l.LineID, &l.Resolved, &l.CreatedAt, &l.ItemName); err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// ResolveLot marks a discrepancy lot as resolved.
func ResolveLot(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE stock_lots SET resolved = 1
		 WHERE id = ? AND status IN ('missing', 'over_received')`,
		id,
	)
	if err != nil {
		return fmt.Errorf("resolving lot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolving lot: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("lot is not a discrepancy entry")
	}
	return nil
}

// WarehouseBalances returns the held balance per item for a warehouse.
func WarehouseBalances(ctx context.Context, db DBTX, warehouseID int64) ([]model.Balance, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT l.warehouse_id, l.item_id, SUM(l.quantity), i.name AS item_name
		 FROM stock_lots l
		 JOIN items i ON i.id = l.item_id
		 WHERE l.warehouse_id = ? AND l.status = 'held'
		 GROUP BY l.item_id
		 ORDER BY i.name`, warehouseID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing warehouse balances: %w", err)
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
