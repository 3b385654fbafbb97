package seating

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine.  Every returned error matches
// exactly one of them with errors.Is; the message carries the detail.
var (
	// ErrNotFound means a referenced client, chair, table or assignment
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInconsistent means the referenced rows do not belong together,
	// e.g. a chair that is not part of the given table.
	ErrInconsistent = errors.New("inconsistent")
	// ErrAlreadyOccupied means the chair already holds a client.
	ErrAlreadyOccupied = errors.New("already occupied")
	// ErrInvalid means an input value is out of range or already taken.
	ErrInvalid = errors.New("invalid")
	// ErrStorageFailure wraps any other persistence error, including
	// commit failures, lock wait timeouts and exhausted deadlock retries.
	ErrStorageFailure = errors.New("storage failure")
)

var kinds = []error{ErrNotFound, ErrInconsistent, ErrAlreadyOccupied, ErrInvalid, ErrStorageFailure}

func notFound(entity string, id uint64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}

// classify leaves engine errors untouched and wraps everything else as a
// storage failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	return storageFailure(op, err)
}

// Outcome returns a short label for err, used in metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInconsistent):
		return "inconsistent"
	case errors.Is(err, ErrAlreadyOccupied):
		return "already_occupied"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	}
	return "storage_failure"
}
