package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/prenos/internal/model"
)

// CreateItem creates a new item type.
func CreateItem(ctx context.Context, db DBTX, name, description, unit string) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, description, unit) VALUES (?, ?, ?)`,
		name, description, unit,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.Item, error) {
	item := &model.Item{}
	var description, unit, imageMime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, unit, image_mime, status, created_at, updated_at, deleted_at
		 FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &description, &unit, &imageMime, &item.Status,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String
	item.Unit = unit.String
	item.ImageMime = imageMime.String
	return item, nil
}

// ItemExists reports whether a non-deleted item with the given id exists.
func ItemExists(ctx context.Context, db DBTX, id int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking item: %w", err)
	}
	return count > 0, nil
}

// ListItems returns all non-deleted items, optionally filtered by status.
func ListItems(ctx context.Context, db DBTX, status string) ([]model.Item, error) {
	query := `SELECT id, name, description, unit, image_mime, status, created_at, updated_at, deleted_at
	          FROM items WHERE deleted_at IS NULL`
	var args []any

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description, unit, imageMime sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &description, &unit, &imageMime, &item.Status,
			&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		item.Unit = unit.String
		item.ImageMime = imageMime.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's metadata.
func UpdateItem(ctx context.Context, db DBTX, id int64, name, description, unit, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, unit = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		name, description, unit, status, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db DBTX, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db DBTX, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// GetItemHistory returns transfers that include the given item, newest first.
func GetItemHistory(ctx context.Context, db DBTX, itemID int64) ([]model.Transfer, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.batch_number, t.sender_kind, t.sender_id, t.receiver_kind, t.receiver_id,
		        t.initiator_id, t.purpose, t.status, t.notes, t.created_by, t.approved_by,
		        t.created_at, t.completed_at,
		        sp.name AS sender_name, rp.name AS receiver_name
		 FROM transfers t
		 JOIN parties sp ON sp.id = t.sender_id
		 JOIN parties rp ON rp.id = t.receiver_id
		 WHERE t.id IN (SELECT transfer_id FROM transfer_lines WHERE item_id = ?)
		 ORDER BY t.created_at DESC, t.id DESC`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting item history: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}
