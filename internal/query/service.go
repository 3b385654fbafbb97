// Package query serves read-only views of the seating plan.  Reads use
// the store's default consistency and never open a transaction.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/repository"
)

// ErrNotFound is returned by the single-entity lookups.
var ErrNotFound = errors.New("not found")

// TableView is a table together with its chairs ordered by number.
type TableView struct {
	model.Table
	Chairs []model.Chair `json:"chairs"`
}

// Service answers seating queries from a repository.Reader.
type Service struct {
	r repository.Reader
}

// New returns a Service reading from r.
func New(r repository.Reader) *Service {
	return &Service{r: r}
}

// ListAssignments returns every assignment with its client, table and
// chair, ordered by table number then chair number.
func (s *Service) ListAssignments(ctx context.Context) ([]model.AssignmentDetail, error) {
	out, err := s.r.ListAssignments(ctx)
	return nonNil(out), err
}

// AssignmentsByTable returns the assignments seated at a table ordered by
// chair number.  An unknown table yields an empty slice.
func (s *Service) AssignmentsByTable(ctx context.Context, tableID uint64) ([]model.Assignment, error) {
	out, err := s.r.AssignmentsByTable(ctx, tableID)
	return nonNil(out), err
}

// AssignmentsByChair returns the assignments on a chair ordered by chair
// number.  An unknown chair yields an empty slice.
func (s *Service) AssignmentsByChair(ctx context.Context, chairID uint64) ([]model.Assignment, error) {
	out, err := s.r.AssignmentsByChair(ctx, chairID)
	return nonNil(out), err
}

// ChairsByTable returns the chairs of a table ordered by number.
func (s *Service) ChairsByTable(ctx context.Context, tableID uint64) ([]model.Chair, error) {
	out, err := s.r.ChairsByTable(ctx, tableID)
	return nonNil(out), err
}

// ListTables returns every table ordered by number.
func (s *Service) ListTables(ctx context.Context) ([]model.Table, error) {
	out, err := s.r.ListTables(ctx)
	return nonNil(out), err
}

// GetTable returns a table with its chairs.
func (s *Service) GetTable(ctx context.Context, id uint64) (*TableView, error) {
	t, err := s.r.GetTable(ctx, id)
	if err != nil {
		return nil, lookupErr("table", id, err)
	}
	chairs, err := s.r.ChairsByTable(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TableView{Table: *t, Chairs: nonNil(chairs)}, nil
}

// GetAssignment returns one assignment with its client, table and chair.
func (s *Service) GetAssignment(ctx context.Context, id uint64) (*model.AssignmentDetail, error) {
	a, err := s.r.GetAssignment(ctx, id)
	if err != nil {
		return nil, lookupErr("assignment", id, err)
	}
	return a, nil
}

// ListClients returns every client.
func (s *Service) ListClients(ctx context.Context) ([]model.Client, error) {
	out, err := s.r.ListClients(ctx)
	return nonNil(out), err
}

// GetClient returns one client or ErrNotFound.
func (s *Service) GetClient(ctx context.Context, id uint64) (*model.Client, error) {
	c, err := s.r.GetClient(ctx, id)
	if err != nil {
		return nil, lookupErr("client", id, err)
	}
	return c, nil
}

// SearchClients matches term against client names and CIs.  A blank
// term lists every client.
func (s *Service) SearchClients(ctx context.Context, term string) ([]model.Client, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.ListClients(ctx)
	}
	out, err := s.r.SearchClients(ctx, term)
	return nonNil(out), err
}

func lookupErr(entity string, id uint64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
	}
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
