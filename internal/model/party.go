package model

import "time"

// Party represents a stock-holding location: a warehouse or a piece of equipment.
type Party struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	Site      string     `json:"site,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Party kinds.
const (
	PartyKindWarehouse = "warehouse"
	PartyKindEquipment = "equipment"
)

// ValidPartyKind reports whether kind is a known party kind.
func ValidPartyKind(kind string) bool {
	return kind == PartyKindWarehouse || kind == PartyKindEquipment
}
