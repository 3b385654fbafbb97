package model

import "time"

// TableStatus is the occupancy state of a table as stored in
// tables.status.  Reserved is a manual override that survives
// assignment changes until it is explicitly lifted.
type TableStatus uint8

const (
	TableFree     TableStatus = 0
	TableOccupied TableStatus = 1
	TableReserved TableStatus = 2
)

// Valid reports whether s is one of the known table states.
func (s TableStatus) Valid() bool { return s <= TableReserved }

func (s TableStatus) String() string {
	switch s {
	case TableFree:
		return "FREE"
	case TableOccupied:
		return "OCCUPIED"
	case TableReserved:
		return "RESERVED"
	}
	return "UNKNOWN"
}

// Table is a physical seating unit.  Number is unique across the venue
// and assigned at creation as max(number)+1.  ChairQuantity records the
// capacity requested at creation; editing it later does not add or
// remove chairs.
//
// Fields:
//  ID            – primary key identifier.
//  Number        – venue-wide table number (1-based).
//  ChairQuantity – capacity requested at creation.
//  Status        – FREE, OCCUPIED or RESERVED.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Table struct {
	ID            uint64      `json:"id"`             // tables.id
	Number        uint32      `json:"number"`         // tables.number
	ChairQuantity uint32      `json:"chair_quantity"` // tables.chair_quantity
	Status        TableStatus `json:"status"`         // tables.status
	CreatedAt     time.Time   `json:"created_at"`     // tables.created_at
	UpdatedAt     time.Time   `json:"updated_at"`     // tables.updated_at
}
