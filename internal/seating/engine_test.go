package seating

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/queue"
	"github.com/iliyamo/venue-seating/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SeatingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.SeatingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string][]string
}

func (m *recordingMetrics) ObserveOperation(op, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string][]string{}
	}
	m.outcomes[op] = append(m.outcomes[op], outcome)
}

// faultyStore wraps a Store and lets a test replace single Tx steps.
type faultyStore struct {
	repository.Store
	setTableStatus func(id uint64, status model.TableStatus) error
	// maxTableNumber rewrites what MaxTableNumber reports.
	maxTableNumber func(actual uint32) uint32
	// partialClientUpdate makes UpdateClient fill in only UpdatedAt, the
	// way the SQL store does.
	partialClientUpdate bool
}

func (s *faultyStore) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	repository.Tx
	store *faultyStore
}

func (t *faultyTx) SetTableStatus(ctx context.Context, id uint64, status model.TableStatus) error {
	if t.store.setTableStatus != nil {
		if err := t.store.setTableStatus(id, status); err != nil {
			return err
		}
	}
	return t.Tx.SetTableStatus(ctx, id, status)
}

func (t *faultyTx) MaxTableNumber(ctx context.Context) (uint32, error) {
	n, err := t.Tx.MaxTableNumber(ctx)
	if err != nil || t.store.maxTableNumber == nil {
		return n, err
	}
	return t.store.maxTableNumber(n), nil
}

func (t *faultyTx) UpdateClient(ctx context.Context, c *model.Client) error {
	if !t.store.partialClientUpdate {
		return t.Tx.UpdateClient(ctx, c)
	}
	cp := *c
	if err := t.Tx.UpdateClient(ctx, &cp); err != nil {
		return err
	}
	c.UpdatedAt = cp.UpdatedAt
	return nil
}

type fixture struct {
	store   *repository.MemoryStore
	engine  *Engine
	events  *recordingPublisher
	metrics *recordingMetrics
	table   *model.Table
	chairs  []model.Chair
	clients []*model.Client
}

func newFixture(t *testing.T, chairs, clients int) *fixture {
	t.Helper()
	f := &fixture{
		store:   repository.NewMemoryStore(),
		events:  &recordingPublisher{},
		metrics: &recordingMetrics{},
	}
	f.engine = New(f.store, WithPublisher(f.events), WithMetrics(f.metrics))
	ctx := context.Background()

	var err error
	f.table, f.chairs, err = f.engine.CreateTable(ctx, chairs, false)
	require.NoError(t, err)
	for i := 0; i < clients; i++ {
		c, err := f.engine.CreateClient(ctx, ClientInput{
			Fullname:    "Guest " + string(rune('A'+i)),
			CI:          "CI-00" + string(rune('0'+i)) + "00",
			PhoneNumber: "555012345" + string(rune('0'+i)),
		})
		require.NoError(t, err)
		f.clients = append(f.clients, c)
	}
	return f
}

func (f *fixture) tableStatus(t *testing.T, id uint64) model.TableStatus {
	t.Helper()
	tb, err := f.store.GetTable(context.Background(), id)
	require.NoError(t, err)
	return tb.Status
}

func (f *fixture) chairStatus(t *testing.T, id uint64) model.ChairStatus {
	t.Helper()
	c, err := f.store.GetChair(context.Background(), id)
	require.NoError(t, err)
	return c.Status
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))

	wrapped := notFound("table", 4)
	assert.Same(t, wrapped, classify("op", wrapped))

	err := classify("op", errors.New("connection reset"))
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":               nil,
		"not_found":        notFound("chair", 1),
		"inconsistent":     ErrInconsistent,
		"already_occupied": ErrAlreadyOccupied,
		"invalid":          ErrInvalid,
		"storage_failure":  errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Outcome(err))
	}
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Actor{}, ActorFrom(ctx))

	ctx = WithActor(ctx, Actor{UserID: 42, Role: model.RoleStaff})
	assert.Equal(t, uint64(42), ActorFrom(ctx).UserID)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, 2, 1)
	f.events.err = errors.New("broker down")

	a, err := f.engine.Assign(context.Background(), f.clients[0].ID, f.chairs[0].ID, f.table.ID)
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
}

func TestEventsCarryActorAndID(t *testing.T) {
	f := newFixture(t, 2, 1)
	ctx := WithActor(context.Background(), Actor{UserID: 9, Role: model.RoleAdmin})

	_, err := f.engine.Assign(ctx, f.clients[0].ID, f.chairs[0].ID, f.table.ID)
	require.NoError(t, err)

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, queue.EventAssigned, last.Type)
	assert.Equal(t, uint64(9), last.ActorID)
	assert.NotEmpty(t, last.ID)
	assert.False(t, last.OccurredAt.IsZero())
}
