package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/venue-seating/internal/model"
)

// memoryState holds every relation of the in-memory store.  Values are
// stored by value so a shallow map copy is a full snapshot.
type memoryState struct {
	tables      map[uint64]model.Table
	chairs      map[uint64]model.Chair
	clients     map[uint64]model.Client
	assignments map[uint64]model.Assignment
	nextID      uint64
}

func newMemoryState() memoryState {
	return memoryState{
		tables:      map[uint64]model.Table{},
		chairs:      map[uint64]model.Chair{},
		clients:     map[uint64]model.Client{},
		assignments: map[uint64]model.Assignment{},
	}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		tables:      make(map[uint64]model.Table, len(s.tables)),
		chairs:      make(map[uint64]model.Chair, len(s.chairs)),
		clients:     make(map[uint64]model.Client, len(s.clients)),
		assignments: make(map[uint64]model.Assignment, len(s.assignments)),
		nextID:      s.nextID,
	}
	for k, v := range s.tables {
		out.tables[k] = v
	}
	for k, v := range s.chairs {
		out.chairs[k] = v
	}
	for k, v := range s.clients {
		out.clients[k] = v
	}
	for k, v := range s.assignments {
		out.assignments[k] = v
	}
	return out
}

// MemoryStore is an in-process Store.  Transactions are serialized: a
// writer works on a private copy of the state that replaces the shared
// state only on commit, so a failed transaction leaves nothing behind.
// It backs the tests and DB_DRIVER=memory local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state memoryState
	now   func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState(), now: utcNow}
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memTx)(nil)
)

// WithTx implements Store.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	working := m.state.clone()
	m.mu.RUnlock()

	if err := fn(&memTx{st: &working, now: m.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = working
	m.mu.Unlock()
	return nil
}

// read runs fn under the read lock against the committed state.
func (m *MemoryStore) read(fn func(st *memoryState)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(&m.state)
}

// ListTables returns every table ordered by number.
func (m *MemoryStore) ListTables(ctx context.Context) ([]model.Table, error) {
	out := []model.Table{}
	m.read(func(st *memoryState) {
		for _, t := range st.tables {
			out = append(out, t)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// GetTable implements Reader.
func (m *MemoryStore) GetTable(ctx context.Context, id uint64) (*model.Table, error) {
	var (
		t  model.Table
		ok bool
	)
	m.read(func(st *memoryState) { t, ok = st.tables[id] })
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// GetChair implements Reader.
func (m *MemoryStore) GetChair(ctx context.Context, id uint64) (*model.Chair, error) {
	var (
		c  model.Chair
		ok bool
	)
	m.read(func(st *memoryState) { c, ok = st.chairs[id] })
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ChairsByTable returns the chairs of a table ordered by number.
func (m *MemoryStore) ChairsByTable(ctx context.Context, tableID uint64) ([]model.Chair, error) {
	var out []model.Chair
	m.read(func(st *memoryState) { out = st.chairsByTable(tableID) })
	return out, nil
}

// ListClients returns every client ordered by id.
func (m *MemoryStore) ListClients(ctx context.Context) ([]model.Client, error) {
	out := []model.Client{}
	m.read(func(st *memoryState) {
		for _, c := range st.clients {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SearchClients matches term case-insensitively against name and CI.
func (m *MemoryStore) SearchClients(ctx context.Context, term string) ([]model.Client, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := []model.Client{}
	m.read(func(st *memoryState) {
		for _, c := range st.clients {
			if strings.Contains(strings.ToLower(c.Fullname), needle) || strings.Contains(strings.ToLower(c.CI), needle) {
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fullname != out[j].Fullname {
			return out[i].Fullname < out[j].Fullname
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetClient implements Reader.
func (m *MemoryStore) GetClient(ctx context.Context, id uint64) (*model.Client, error) {
	var (
		c  model.Client
		ok bool
	)
	m.read(func(st *memoryState) { c, ok = st.clients[id] })
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ListAssignments returns every assignment joined with its client, table
// and chair, ordered by table number then chair number.
func (m *MemoryStore) ListAssignments(ctx context.Context) ([]model.AssignmentDetail, error) {
	out := []model.AssignmentDetail{}
	m.read(func(st *memoryState) {
		for _, a := range st.assignments {
			out = append(out, st.detail(a))
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table.Number != out[j].Table.Number {
			return out[i].Table.Number < out[j].Table.Number
		}
		if out[i].Chair.Number != out[j].Chair.Number {
			return out[i].Chair.Number < out[j].Chair.Number
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetAssignment returns one joined assignment.
func (m *MemoryStore) GetAssignment(ctx context.Context, id uint64) (*model.AssignmentDetail, error) {
	var (
		d  model.AssignmentDetail
		ok bool
	)
	m.read(func(st *memoryState) {
		var a model.Assignment
		if a, ok = st.assignments[id]; ok {
			d = st.detail(a)
		}
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// AssignmentsByTable implements Reader.
func (m *MemoryStore) AssignmentsByTable(ctx context.Context, tableID uint64) ([]model.Assignment, error) {
	var out []model.Assignment
	m.read(func(st *memoryState) {
		out = st.filterAssignments(func(a model.Assignment) bool { return a.TableID == tableID })
	})
	return out, nil
}

// AssignmentsByChair implements Reader.
func (m *MemoryStore) AssignmentsByChair(ctx context.Context, chairID uint64) ([]model.Assignment, error) {
	var out []model.Assignment
	m.read(func(st *memoryState) {
		out = st.filterAssignments(func(a model.Assignment) bool { return a.ChairID == chairID })
	})
	return out, nil
}

func (st *memoryState) detail(a model.Assignment) model.AssignmentDetail {
	return model.AssignmentDetail{
		Assignment: a,
		Client:     st.clients[a.ClientID],
		Table:      st.tables[a.TableID],
		Chair:      st.chairs[a.ChairID],
	}
}

func (st *memoryState) chairsByTable(tableID uint64) []model.Chair {
	out := []model.Chair{}
	for _, c := range st.chairs {
		if c.TableID == tableID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// filterAssignments returns matching assignments ordered by chair number.
func (st *memoryState) filterAssignments(keep func(model.Assignment) bool) []model.Assignment {
	out := []model.Assignment{}
	for _, a := range st.assignments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := st.chairs[out[i].ChairID].Number, st.chairs[out[j].ChairID].Number
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *memoryState) newID() uint64 {
	st.nextID++
	return st.nextID
}

// memTx implements Tx over a private copy of the state.  Row locks are
// implicit because only one transaction runs at a time.
type memTx struct {
	st  *memoryState
	now func() time.Time
}

func (t *memTx) TableForUpdate(ctx context.Context, id uint64) (*model.Table, error) {
	tb, ok := t.st.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &tb, nil
}

func (t *memTx) ChairForUpdate(ctx context.Context, id uint64) (*model.Chair, error) {
	c, ok := t.st.chairs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (t *memTx) ClientForUpdate(ctx context.Context, id uint64) (*model.Client, error) {
	c, ok := t.st.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (t *memTx) AssignmentByID(ctx context.Context, id uint64) (*model.Assignment, error) {
	a, ok := t.st.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (t *memTx) AssignmentForUpdate(ctx context.Context, id uint64) (*model.Assignment, error) {
	return t.AssignmentByID(ctx, id)
}

func (t *memTx) AssignmentByChair(ctx context.Context, chairID uint64) (*model.Assignment, error) {
	for _, a := range t.st.assignments {
		if a.ChairID == chairID {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) AssignmentsByClient(ctx context.Context, clientID uint64) ([]model.Assignment, error) {
	out := []model.Assignment{}
	for _, a := range t.st.assignments {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CountAssignmentsByTable(ctx context.Context, tableID uint64) (int, error) {
	n := 0
	for _, a := range t.st.assignments {
		if a.TableID == tableID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ChairsByTable(ctx context.Context, tableID uint64) ([]model.Chair, error) {
	return t.st.chairsByTable(tableID), nil
}

func (t *memTx) MaxTableNumber(ctx context.Context) (uint32, error) {
	var max uint32
	for _, tb := range t.st.tables {
		if tb.Number > max {
			max = tb.Number
		}
	}
	return max, nil
}

func (t *memTx) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	if _, err := t.AssignmentByChair(ctx, a.ChairID); err == nil {
		return ErrDuplicate
	}
	a.ID = t.st.newID()
	a.CreatedAt = t.now()
	t.st.assignments[a.ID] = *a
	return nil
}

func (t *memTx) DeleteAssignment(ctx context.Context, id uint64) error {
	if _, ok := t.st.assignments[id]; !ok {
		return ErrNotFound
	}
	delete(t.st.assignments, id)
	return nil
}

func (t *memTx) SetChairStatus(ctx context.Context, id uint64, status model.ChairStatus) error {
	c, ok := t.st.chairs[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = t.now()
	t.st.chairs[id] = c
	return nil
}

func (t *memTx) SetTableStatus(ctx context.Context, id uint64, status model.TableStatus) error {
	tb, ok := t.st.tables[id]
	if !ok {
		return ErrNotFound
	}
	tb.Status = status
	tb.UpdatedAt = t.now()
	t.st.tables[id] = tb
	return nil
}

func (t *memTx) SetChairQuantity(ctx context.Context, id uint64, quantity uint32) error {
	tb, ok := t.st.tables[id]
	if !ok {
		return ErrNotFound
	}
	tb.ChairQuantity = quantity
	tb.UpdatedAt = t.now()
	t.st.tables[id] = tb
	return nil
}

func (t *memTx) InsertTable(ctx context.Context, tb *model.Table) error {
	for _, other := range t.st.tables {
		if other.Number == tb.Number {
			return ErrDuplicate
		}
	}
	now := t.now()
	tb.ID = t.st.newID()
	tb.CreatedAt, tb.UpdatedAt = now, now
	t.st.tables[tb.ID] = *tb
	return nil
}

func (t *memTx) InsertChairs(ctx context.Context, chairs []model.Chair) error {
	now := t.now()
	for _, c := range chairs {
		if _, ok := t.st.tables[c.TableID]; !ok {
			return ErrNotFound
		}
		c.ID = t.st.newID()
		c.CreatedAt, c.UpdatedAt = now, now
		t.st.chairs[c.ID] = c
	}
	return nil
}

func (t *memTx) DeleteAssignmentsByTable(ctx context.Context, tableID uint64) (int64, error) {
	var n int64
	for id, a := range t.st.assignments {
		if a.TableID == tableID || t.st.chairs[a.ChairID].TableID == tableID {
			delete(t.st.assignments, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteChairsByTable(ctx context.Context, tableID uint64) (int64, error) {
	var n int64
	for id, c := range t.st.chairs {
		if c.TableID == tableID {
			delete(t.st.chairs, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteTable(ctx context.Context, id uint64) error {
	if _, ok := t.st.tables[id]; !ok {
		return ErrNotFound
	}
	for _, c := range t.st.chairs {
		if c.TableID == id {
			return ErrReferenced
		}
	}
	delete(t.st.tables, id)
	return nil
}

func (t *memTx) InsertClient(ctx context.Context, c *model.Client) error {
	if t.ciTaken(c.CI, 0) {
		return ErrDuplicate
	}
	now := t.now()
	c.ID = t.st.newID()
	c.CreatedAt, c.UpdatedAt = now, now
	t.st.clients[c.ID] = *c
	return nil
}

func (t *memTx) UpdateClient(ctx context.Context, c *model.Client) error {
	cur, ok := t.st.clients[c.ID]
	if !ok {
		return ErrNotFound
	}
	if t.ciTaken(c.CI, c.ID) {
		return ErrDuplicate
	}
	cur.Fullname, cur.CI, cur.PhoneNumber = c.Fullname, c.CI, c.PhoneNumber
	cur.UpdatedAt = t.now()
	t.st.clients[c.ID] = cur
	*c = cur
	return nil
}

func (t *memTx) DeleteClient(ctx context.Context, id uint64) error {
	if _, ok := t.st.clients[id]; !ok {
		return ErrNotFound
	}
	for _, a := range t.st.assignments {
		if a.ClientID == id {
			return ErrReferenced
		}
	}
	delete(t.st.clients, id)
	return nil
}

func (t *memTx) ciTaken(ci string, except uint64) bool {
	for _, c := range t.st.clients {
		if c.ID != except && c.CI == ci {
			return true
		}
	}
	return false
}
