package model

import "time"

// ChairStatus is the occupancy state of a chair as stored in chairs.status.
type ChairStatus uint8

const (
	ChairFree     ChairStatus = 0
	ChairOccupied ChairStatus = 1
)

func (s ChairStatus) String() string {
	if s == ChairOccupied {
		return "OCCUPIED"
	}
	return "FREE"
}

// Chair is one seat belonging to exactly one table.  Chairs are numbered
// 1..N within their table and hold at most one client at a time.
type Chair struct {
	ID        uint64      `json:"id"`         // chairs.id
	TableID   uint64      `json:"id_table"`   // chairs.id_table
	Number    uint32      `json:"number"`     // chairs.number
	Status    ChairStatus `json:"status"`     // chairs.status
	CreatedAt time.Time   `json:"created_at"` // chairs.created_at
	UpdatedAt time.Time   `json:"updated_at"` // chairs.updated_at
}
