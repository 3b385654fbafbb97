// Package occupancy derives table and chair statuses from the assignments
// that reference them.  The functions are pure so the transition rules
// live in one place and every mutation path in the seating engine applies
// them the same way.
package occupancy

import "github.com/iliyamo/venue-seating/internal/model"

// ChairStatus returns the status a chair must carry given whether an
// assignment references it.
func ChairStatus(assigned bool) model.ChairStatus {
	if assigned {
		return model.ChairOccupied
	}
	return model.ChairFree
}

// TableStatus returns the status a table must carry given its current
// status and the number of assignments that reference it.  A Reserved
// table stays Reserved regardless of the count.
func TableStatus(current model.TableStatus, assignments int) model.TableStatus {
	if current == model.TableReserved {
		return model.TableReserved
	}
	return fromCount(assignments)
}

// Unreserve returns the status of a table whose manual reservation is
// being lifted.
func Unreserve(assignments int) model.TableStatus {
	return fromCount(assignments)
}

func fromCount(n int) model.TableStatus {
	if n > 0 {
		return model.TableOccupied
	}
	return model.TableFree
}
