package seating

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/queue"
	"github.com/iliyamo/venue-seating/internal/repository"
)

// ClientInput holds the editable fields of a client.
type ClientInput struct {
	Fullname    string `json:"fullname" validate:"required,max=255"`
	CI          string `json:"ci" validate:"required,min=6,max=20"`
	PhoneNumber string `json:"phone_number" validate:"required,min=10,max=12"`
}

func (in ClientInput) normalize() ClientInput {
	return ClientInput{
		Fullname:    strings.TrimSpace(in.Fullname),
		CI:          strings.TrimSpace(in.CI),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
	}
}

func (e *Engine) checkClient(in ClientInput) error {
	if err := e.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalid, strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// CreateClient registers a client.  CI must be unique.
func (e *Engine) CreateClient(ctx context.Context, in ClientInput) (*model.Client, error) {
	in = in.normalize()
	if err := e.checkClient(in); err != nil {
		return nil, err
	}
	c := &model.Client{Fullname: in.Fullname, CI: in.CI, PhoneNumber: in.PhoneNumber}
	err := e.mutate(ctx, "create_client", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		if err := tx.InsertClient(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, fmt.Errorf("%w: ci %q already registered", ErrInvalid, in.CI)
			}
			return nil, storageFailure("insert client", err)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateClient replaces the editable fields of a client.
func (e *Engine) UpdateClient(ctx context.Context, id uint64, in ClientInput) (*model.Client, error) {
	in = in.normalize()
	if err := e.checkClient(in); err != nil {
		return nil, err
	}
	var out *model.Client
	err := e.mutate(ctx, "update_client", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		c, err := tx.ClientForUpdate(ctx, id)
		if err != nil {
			return nil, lookupErr("client", id, err)
		}
		c.Fullname, c.CI, c.PhoneNumber = in.Fullname, in.CI, in.PhoneNumber
		if err := tx.UpdateClient(ctx, c); err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicate):
				return nil, fmt.Errorf("%w: ci %q already registered", ErrInvalid, in.CI)
			case errors.Is(err, repository.ErrNotFound):
				return nil, notFound("client", id)
			}
			return nil, storageFailure("update client", err)
		}
		out = c
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteClient removes a client.  Any chairs the client holds are
// released in the same transaction and the affected tables recomputed.
func (e *Engine) DeleteClient(ctx context.Context, id uint64) error {
	return e.mutate(ctx, "delete_client", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		peek, err := tx.AssignmentsByClient(ctx, id)
		if err != nil {
			return nil, storageFailure("load assignments", err)
		}
		ids := make([]uint64, 0, len(peek))
		for _, a := range peek {
			ids = append(ids, a.TableID)
		}
		tables, err := lockTables(ctx, tx, ids...)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ClientForUpdate(ctx, id); err != nil {
			return nil, lookupErr("client", id, err)
		}

		held, err := tx.AssignmentsByClient(ctx, id)
		if err != nil {
			return nil, storageFailure("load assignments", err)
		}
		sort.Slice(held, func(i, j int) bool { return held[i].ID < held[j].ID })
		for _, a := range held {
			table, ok := tables[a.TableID]
			if !ok {
				return nil, fmt.Errorf("%w: client %d was seated concurrently", ErrInconsistent, id)
			}
			if _, _, err := releaseLocked(ctx, tx, table, a.ID); err != nil {
				return nil, err
			}
		}
		if err := tx.DeleteClient(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFound("client", id)
			}
			return nil, storageFailure("delete client", err)
		}
		return &queue.SeatingEvent{Type: queue.EventClientDeleted, ClientID: id, Released: int64(len(held))}, nil
	})
}
