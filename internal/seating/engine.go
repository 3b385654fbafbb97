// Package seating is the assignment engine.  It owns every mutation of
// tables, chairs, clients and assignments, runs each one as a single
// store transaction and keeps table and chair statuses in line with the
// assignments that reference them.
package seating

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/queue"
	"github.com/iliyamo/venue-seating/internal/repository"
)

// Publisher delivers committed seating events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, ev queue.SeatingEvent) error
}

// Metrics records the outcome and latency of engine operations.
type Metrics interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.SeatingEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, string, time.Duration) {}

// Engine runs seating mutations against a repository.Store.
type Engine struct {
	store          repository.Store
	log            *slog.Logger
	events         Publisher
	metrics        Metrics
	validate       *validator.Validate
	publishTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.  The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithPublisher sets the event publisher.  Events are dropped by default.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.events = p
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithPublishTimeout bounds how long a commit waits for the event
// publisher.
func WithPublishTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.publishTimeout = d
		}
	}
}

// New returns an Engine over store.
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		log:            slog.Default(),
		events:         nopPublisher{},
		metrics:        nopMetrics{},
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		publishTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// mutate runs fn in one transaction, classifies the error, records
// metrics and publishes the event fn produced once the commit succeeded.
// fn may run more than once when the store retries a deadlock victim.
func (e *Engine) mutate(ctx context.Context, op string, fn func(tx repository.Tx) (*queue.SeatingEvent, error)) error {
	start := time.Now()
	var ev *queue.SeatingEvent
	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		ev, err = fn(tx)
		return err
	})
	err = classify(op, err)
	e.metrics.ObserveOperation(op, Outcome(err), time.Since(start))

	actor := ActorFrom(ctx)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrStorageFailure) {
			level = slog.LevelError
		}
		e.log.Log(ctx, level, "seating operation failed", "op", op, "actor", actor.UserID, "error", err)
		return err
	}
	e.log.Info("seating operation committed", "op", op, "actor", actor.UserID, "elapsed", time.Since(start))
	if ev != nil {
		e.publish(ctx, *ev)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, ev queue.SeatingEvent) {
	ev.ID = uuid.NewString()
	ev.ActorID = ActorFrom(ctx).UserID
	ev.OccurredAt = time.Now().UTC()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishTimeout)
	defer cancel()
	if err := e.events.Publish(pctx, ev); err != nil {
		e.log.Warn("seating event not published", "type", ev.Type, "error", err)
	}
}

// lockTables locks the given tables in ascending id order so concurrent
// multi-table operations cannot deadlock on each other.
func lockTables(ctx context.Context, tx repository.Tx, ids ...uint64) (map[uint64]*model.Table, error) {
	uniq := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	out := make(map[uint64]*model.Table, len(uniq))
	for _, id := range uniq {
		t, err := tx.TableForUpdate(ctx, id)
		if err != nil {
			return nil, lookupErr("table", id, err)
		}
		out[id] = t
	}
	return out, nil
}

// lookupErr maps a repository miss to ErrNotFound for the named entity.
func lookupErr(entity string, id uint64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(entity, id)
	}
	return storageFailure("load "+entity, err)
}
