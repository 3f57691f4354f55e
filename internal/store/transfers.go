package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/prenos/internal/model"
)

// TransferFilter narrows ListTransfers results. Zero values mean "no filter".
type TransferFilter struct {
	PartyID     int64  // matches either sender or receiver
	BatchNumber string
	InitiatorID int64
	Purpose     string
	PendingOnly bool
}

// InsertTransfer inserts a transfer record and returns its id. Lines are
// inserted separately with InsertLine.
func InsertTransfer(ctx context.Context, db DBTX, t *model.Transfer) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO transfers (batch_number, sender_kind, sender_id, receiver_kind, receiver_id,
		                        initiator_id, purpose, status, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.BatchNumber, t.SenderKind, t.SenderID, t.ReceiverKind, t.ReceiverID,
		t.InitiatorID, t.Purpose, model.TransferStatusPending, t.CreatedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting transfer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transfer id: %w", err)
	}
	return id, nil
}

// InsertLine inserts a transfer line with a claimed quantity.
func InsertLine(ctx context.Context, db DBTX, transferID, itemID int64, claimedQty int) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO transfer_lines (transfer_id, item_id, claimed_qty, status)
		 VALUES (?, ?, ?, ?)`,
		transferID, itemID, claimedQty, model.TransferStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting transfer line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting line id: %w", err)
	}
	return id, nil
}

// GetTransfer returns a transfer by ID with its lines and joined names.
func GetTransfer(ctx context.Context, db DBTX, id int64) (*model.Transfer, error) {
	t := &model.Transfer{}
	var purpose, notes sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT t.id, t.batch_number, t.sender_kind, t.sender_id, t.receiver_kind, t.receiver_id,
		        t.initiator_id, t.purpose, t.status, t.notes, t.created_by, t.approved_by,
		        t.created_at, t.completed_at,
		        sp.name AS sender_name, rp.name AS receiver_name
		 FROM transfers t
		 JOIN parties sp ON sp.id = t.sender_id
		 JOIN parties rp ON rp.id = t.receiver_id
		 WHERE t.id = ?`, id,
	).Scan(&t.ID, &t.BatchNumber, &t.SenderKind, &t.SenderID, &t.ReceiverKind, &t.ReceiverID,
		&t.InitiatorID, &purpose, &t.Status, &notes, &t.CreatedBy, &t.ApprovedBy,
		&t.CreatedAt, &t.CompletedAt, &t.SenderName, &t.ReceiverName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}
	t.Purpose = purpose.String
	t.Notes = notes.String

	t.Lines, err = GetLines(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetLines returns a transfer's lines in insertion order.
func GetLines(ctx context.Context, db DBTX, transferID int64) ([]model.TransferLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT l.id, l.transfer_id, l.item_id, l.claimed_qty, l.reported_qty,
		        l.status, l.reject_reason, i.name AS item_name
		 FROM transfer_lines l
		 JOIN items i ON i.id = l.item_id
		 WHERE l.transfer_id = ?
		 ORDER BY l.id`, transferID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting transfer lines: %w", err)
	}
	defer rows.Close()

	var lines []model.TransferLine
	for rows.Next() {
		var l model.TransferLine
		var reason sql.NullString
		if err := rows.Scan(&l.ID, &l.TransferID, &l.ItemID, &l.ClaimedQty, &l.ReportedQty,
			&l.Status, &reason, &l.ItemName); err != nil {
			return nil, fmt.Errorf("scanning transfer line: %w", err)
		}
		l.RejectReason = reason.String
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListTransfers returns transfers matching the filter, newest first, without
// lines.
func ListTransfers(ctx context.Context, db DBTX, f TransferFilter) ([]model.Transfer, error) {
	query := `SELECT t.id, t.batch_number, t.sender_kind, t.sender_id, t.receiver_kind, t.receiver_id,
	                 t.initiator_id, t.purpose, t.status, t.notes, t.created_by, t.approved_by,
	                 t.created_at, t.completed_at,
	                 sp.name AS sender_name, rp.name AS receiver_name
	          FROM transfers t
	          JOIN parties sp ON sp.id = t.sender_id
	          JOIN parties rp ON rp.id = t.receiver_id
	          WHERE 1=1`
	var args []any

	if f.PartyID > 0 {
		query += ` AND (t.sender_id = ? OR t.receiver_id = ?)`
		args = append(args, f.PartyID, f.PartyID)
	}
	if f.BatchNumber != "" {
		query += ` AND t.batch_number = ?`
		args = append(args, f.BatchNumber)
	}
	if f.InitiatorID > 0 {
		query += ` AND t.initiator_id = ?`
		args = append(args, f.InitiatorID)
	}
	if f.Purpose != "" {
		query += ` AND t.purpose = ?`
		args = append(args, f.Purpose)
	}
	if f.PendingOnly {
		query += ` AND t.status = 'pending'`
	}

	query += ` ORDER BY t.created_at DESC, t.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// PendingByBatch returns all pending transfers sharing a batch number and
// (sender, receiver) pair, oldest first. The batch matcher pairs records from
// this set.
func PendingByBatch(ctx context.Context, db DBTX, batchNumber string, senderID, receiverID int64) ([]model.Transfer, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.batch_number, t.sender_kind, t.sender_id, t.receiver_kind, t.receiver_id,
		        t.initiator_id, t.purpose, t.status, t.notes, t.created_by, t.approved_by,
		        t.created_at, t.completed_at,
		        sp.name AS sender_name, rp.name AS receiver_name
		 FROM transfers t
		 JOIN parties sp ON sp.id = t.sender_id
		 JOIN parties rp ON rp.id = t.receiver_id
		 WHERE t.batch_number = ? AND t.sender_id = ? AND t.receiver_id = ? AND t.status = 'pending'
		 ORDER BY t.created_at, t.id`,
		batchNumber, senderID, receiverID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding pending batch transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// StalePendingTransfers returns pending transfers created more than maxAge
// ago, oldest first. Used by the maintenance sweep to flag records whose
// counterparty never reconciled.
func StalePendingTransfers(ctx context.Context, db DBTX, maxAge time.Duration) ([]model.Transfer, error) {
	cutoff := time.Now().Add(-maxAge)
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.batch_number, t.sender_kind, t.sender_id, t.receiver_kind, t.receiver_id,
		        t.initiator_id, t.purpose, t.status, t.notes, t.created_by, t.approved_by,
		        t.created_at, t.completed_at,
		        sp.name AS sender_name, rp.name AS receiver_name
		 FROM transfers t
		 JOIN parties sp ON sp.id = t.sender_id
		 JOIN parties rp ON rp.id = t.receiver_id
		 WHERE t.status = 'pending' AND t.created_at < ?
		 ORDER BY t.created_at, t.id`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("finding stale pending transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// SetLineOutcome records a line's reconciliation result.
func SetLineOutcome(ctx context.Context, db DBTX, lineID int64, reportedQty *int, status, rejectReason string) error {
	var reason any
	if rejectReason != "" {
		reason = rejectReason
	}
	_, err := db.ExecContext(ctx,
		`UPDATE transfer_lines SET reported_qty = ?, status = ?, reject_reason = ? WHERE id = ?`,
		reportedQty, status, reason, lineID,
	)
	if err != nil {
		return fmt.Errorf("recording line outcome: %w", err)
	}
	return nil
}

// UpdateLineClaim rewrites a pending line's item and claimed quantity.
func UpdateLineClaim(ctx context.Context, db DBTX, lineID, itemID int64, claimedQty int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE transfer_lines SET item_id = ?, claimed_qty = ? WHERE id = ?`,
		itemID, claimedQty, lineID,
	)
	if err != nil {
		return fmt.Errorf("updating line claim: %w", err)
	}
	return nil
}

// UpdateTransferHeader rewrites a pending transfer's parties, initiator and
// batch number.
func UpdateTransferHeader(ctx context.Context, db DBTX, id int64, senderKind string, senderID int64, receiverKind string, receiverID, initiatorID int64, batchNumber string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE transfers SET sender_kind = ?, sender_id = ?, receiver_kind = ?, receiver_id = ?,
		        initiator_id = ?, batch_number = ?
		 WHERE id = ?`,
		senderKind, senderID, receiverKind, receiverID, initiatorID, batchNumber, id,
	)
	if err != nil {
		return fmt.Errorf("updating transfer header: %w", err)
	}
	return nil
}

// FinalizeTransfer moves a transfer to a terminal status, stamping the
// approver, completion time and an optional comment.
func FinalizeTransfer(ctx context.Context, db DBTX, id int64, status string, approvedBy *int64, comment string) error {
	var notes any
	if comment != "" {
		notes = comment
	}
	_, err := db.ExecContext(ctx,
		`UPDATE transfers SET status = ?, approved_by = ?, notes = COALESCE(?, notes),
		        completed_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status, approvedBy, notes, id,
	)
	if err != nil {
		return fmt.Errorf("finalizing transfer: %w", err)
	}
	return nil
}

func scanTransfers(rows *sql.Rows) ([]model.Transfer, error) {
	var transfers []model.Transfer
	for rows.Next() {
		var t model.Transfer
		var purpose, notes sql.NullString
		if err := rows.Scan(&t.ID, &t.BatchNumber, &t.SenderKind, &t.SenderID, &t.ReceiverKind, &t.ReceiverID,
			&t.InitiatorID, &purpose, &t.Status, &notes, &t.CreatedBy, &t.ApprovedBy,
			&t.CreatedAt, &t.CompletedAt, &t.SenderName, &t.ReceiverName); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		t.Purpose = purpose.String
		t.Notes = notes.String
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
