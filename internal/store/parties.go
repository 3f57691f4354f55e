package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/prenos/internal/model"
)

// CreateParty creates a new party (warehouse or equipment).
func CreateParty(ctx context.Context, db DBTX, name, kind, site string) (*model.Party, error) {
	if !model.ValidPartyKind(kind) {
		return nil, fmt.Errorf("unknown party kind %q", kind)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO parties (name, kind, site) VALUES (?, ?, ?)`,
		name, kind, site,
	)
	if err != nil {
		return nil, fmt.Errorf("creating party: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting party id: %w", err)
	}

	return GetParty(ctx, db, id)
}

// GetParty returns a party by ID.
func GetParty(ctx context.Context, db DBTX, id int64) (*model.Party, error) {
	p := &model.Party{}
	var site sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, kind, site, created_at, deleted_at
		 FROM parties WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Kind, &site, &p.CreatedAt, &p.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting party: %w", err)
	}
	p.Site = site.String
	return p, nil
}

// PartyExists reports whether a non-deleted party with the given id and kind
// exists.
func PartyExists(ctx context.Context, db DBTX, id int64, kind string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parties WHERE id = ? AND kind = ? AND deleted_at IS NULL`,
		id, kind,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking party: %w", err)
	}
	return count > 0, nil
}

// ListParties returns all non-deleted parties, optionally filtered by kind.
func ListParties(ctx context.Context, db DBTX, kind string) ([]model.Party, error) {
	query := `SELECT id, name, kind, site, created_at, deleted_at
	          FROM parties WHERE deleted_at IS NULL`
	var args []any

	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing parties: %w", err)
	}
	defer rows.Close()

	var parties []model.Party
	for rows.Next() {
		var p model.Party
		var site sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Kind, &site, &p.CreatedAt, &p.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning party: %w", err)
		}
		p.Site = site.String
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

// UpdateParty updates a party's name and site.
func UpdateParty(ctx context.Context, db DBTX, id int64, name, site string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE parties SET name = ?, site = ? WHERE id = ? AND deleted_at IS NULL`,
		name, site, id,
	)
	if err != nil {
		return fmt.Errorf("updating party: %w", err)
	}
	return nil
}

// DeleteParty soft-deletes a party. Fails if the party still holds stock.
func DeleteParty(ctx context.Context, db DBTX, id int64) error {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM stock_lots WHERE warehouse_id = ?1 AND status = 'held')
		      + (SELECT COUNT(*) FROM consumable_entries WHERE equipment_id = ?1 AND status = 'held')`,
		id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking party stock: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("cannot delete party: still holds %d stock entries", count)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE parties SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting party: %w", err)
	}
	return nil
}
