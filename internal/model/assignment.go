package model

import "time"

// Assignment records that a client currently occupies a chair at a
// table.  Assignments are never edited in place: moving a client is a
// release followed by a new assignment.
//
// Fields:
//  ID        – primary key identifier.
//  ClientID  – seated client.
//  ChairID   – occupied chair.
//  TableID   – table the chair belongs to (always equal to the chair's table).
//  CreatedAt – when the client was seated.
type Assignment struct {
	ID        uint64    `json:"id"`         // assigned_chairs.id
	ClientID  uint64    `json:"id_client"`  // assigned_chairs.id_client
	ChairID   uint64    `json:"id_chair"`   // assigned_chairs.id_chair
	TableID   uint64    `json:"id_table"`   // assigned_chairs.id_table
	CreatedAt time.Time `json:"created_at"` // assigned_chairs.created_at
}

// AssignmentDetail is an assignment joined with the client, table and
// chair it references.  It is what listings return to the presentation
// layer.
type AssignmentDetail struct {
	Assignment
	Client Client `json:"client"`
	Table  Table  `json:"table"`
	Chair  Chair  `json:"chair"`
}
