// Package queue defines the seating event payload exchanged over the
// message broker and the consumer that records it.
package queue

import "time"

// EventType names what happened to the seating plan.
type EventType string

const (
	EventAssigned        EventType = "assignment.created"
	EventReleased        EventType = "assignment.released"
	EventReassigned      EventType = "assignment.moved"
	EventTableCreated    EventType = "table.created"
	EventTableUpdated    EventType = "table.updated"
	EventTableReserved   EventType = "table.reserved"
	EventTableUnreserved EventType = "table.unreserved"
	EventTableDeleted    EventType = "table.deleted"
	EventClientDeleted   EventType = "client.deleted"
)

// SeatingEvent is published after a seating change commits.  It carries
// the resulting statuses so consumers can react without querying the
// primary database.
type SeatingEvent struct {
	ID              string    `json:"id"`
	Type            EventType `json:"type"`
	ActorID         uint64    `json:"actor_id,omitempty"`
	AssignmentID    uint64    `json:"assignment_id,omitempty"`
	ClientID        uint64    `json:"client_id,omitempty"`
	ChairID         uint64    `json:"chair_id,omitempty"`
	TableID         uint64    `json:"table_id,omitempty"`
	PreviousChairID uint64    `json:"previous_chair_id,omitempty"`
	PreviousTableID uint64    `json:"previous_table_id,omitempty"`
	TableStatus     string    `json:"table_status,omitempty"`
	ChairStatus     string    `json:"chair_status,omitempty"`
	Released        int64     `json:"released,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
