package model

import "time"

// Transfer represents one party's account of a stock movement between two
// parties. Two pending transfers with the same batch number and party pair may
// describe the same physical movement from opposite sides; the batch matcher
// reconciles them.
type Transfer struct {
	ID           int64      `json:"id"`
	BatchNumber  string     `json:"batch_number"`
	SenderKind   string     `json:"sender_kind"`
	SenderID     int64      `json:"sender_id"`
	ReceiverKind string     `json:"receiver_kind"`
	ReceiverID   int64      `json:"receiver_id"`
	InitiatorID  int64      `json:"initiator_id"`
	Purpose      string     `json:"purpose,omitempty"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
	CreatedBy    *int64     `json:"created_by,omitempty"`
	ApprovedBy   *int64     `json:"approved_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	Lines []TransferLine `json:"lines,omitempty"`

	// Joined fields (not always populated).
	SenderName   string `json:"sender_name,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`
}

// TransferLine is a single item position on a transfer. ClaimedQty is set by
// the initiating party at creation; ReportedQty is filled in by the
// counterparty at reconciliation time and stays nil until then.
type TransferLine struct {
	ID           int64  `json:"id"`
	TransferID   int64  `json:"transfer_id"`
	ItemID       int64  `json:"item_id"`
	ClaimedQty   int    `json:"claimed_qty"`
	ReportedQty  *int   `json:"reported_qty,omitempty"`
	Status       string `json:"status"`
	RejectReason string `json:"reject_reason,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Transfer and line statuses.
const (
	TransferStatusPending  = "pending"
	TransferStatusAccepted = "accepted"
	TransferStatusRejected = "rejected"
)

// Line rejection reasons recorded by the reconciliation processor.
const (
	RejectReasonNotReceived      = "not received"
	RejectReasonQuantityMismatch = "quantity mismatch"
)

// SenderInitiated reports whether the transfer was created by its sender.
// When sender and receiver share a numeric id (possible across kinds), the
// sender interpretation wins.
func (t *Transfer) SenderInitiated() bool {
	return t.InitiatorID == t.SenderID
}

// Terminal reports whether the transfer has reached a final status.
func (t *Transfer) Terminal() bool {
	return t.Status != TransferStatusPending
}
