package model

import "time"

// StockLot is a discrete unit of warehouse stock. Each ledger addition creates
// a new lot stamped with its creation time; deductions consume lots oldest
// first, so lots double as the FIFO queue and as traceability back to the
// transfer line that produced them.
type StockLot struct {
	ID          int64      `json:"id"`
	WarehouseID int64      `json:"warehouse_id"`
	ItemID      int64      `json:"item_id"`
	Quantity    int        `json:"quantity"`
	Status      string     `json:"status"`
	LineID      *int64     `json:"line_id,omitempty"`
	Resolved    bool       `json:"resolved"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// ConsumableEntry is a unit of equipment-held stock. Unlike warehouse lots
// there is no FIFO contract; the held balance per (equipment, item) is the
// only authoritative figure.
type ConsumableEntry struct {
	ID          int64     `json:"id"`
	EquipmentID int64     `json:"equipment_id"`
	ItemID      int64     `json:"item_id"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	LineID      *int64    `json:"line_id,omitempty"`
	Resolved    bool      `json:"resolved"`
	CreatedAt   time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Ledger entry statuses. Only held quantities are spendable; missing and
// over_received entries record discrepancies, consumed entries record stock
// used up by equipment.
const (
	LedgerStatusHeld         = "held"
	LedgerStatusMissing      = "missing"
	LedgerStatusOverReceived = "over_received"
	LedgerStatusConsumed     = "consumed"
)

// Balance is an aggregated held quantity for one (party, item) pair.
type Balance struct {
	PartyID  int64  `json:"party_id"`
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`

	// Joined fields (not always populated).
	ItemName  string `json:"item_name,omitempty"`
	PartyName string `json:"party_name,omitempty"`
}
