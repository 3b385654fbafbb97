// Package repository implements the entity store behind the seating
// engine.  Sentinel errors defined here let the engine distinguish a
// missing row or a uniqueness violation from any other storage failure
// without depending on a particular database driver.
package repository

import "errors"

// ErrNotFound is returned when a lookup by id yields no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a unique key, such as a
// second assignment on the same chair or a repeated client CI.
var ErrDuplicate = errors.New("duplicate")

// ErrEmailExists is returned when registering an operator whose email is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrReferenced is returned when a delete is rejected because other rows
// still reference the target through a foreign key.
var ErrReferenced = errors.New("referenced by other rows")
