package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"order-payments/internal/core/domain"
	"order-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memStore backs every in-memory repository. Writes made through a memTx are
// applied immediately and undone on rollback, which is enough to reproduce
// the unique idempotency key and the conditional order update.
type memStore struct {
	mu          sync.Mutex
	seq         int64
	orders      map[uuid.UUID]*memRow[domain.Order]
	payments    map[uuid.UUID]*memRow[domain.Payment]
	paymentKeys map[string]uuid.UUID
	attempts    map[uuid.UUID]*memRow[domain.PaymentAttempt]
}

// memRow carries an insertion sequence used as a stable created_at tiebreak.
type memRow[T any] struct {
	seq int64
	val T
}

func newMemStore() *memStore {
	return &memStore{
		orders:      make(map[uuid.UUID]*memRow[domain.Order]),
		payments:    make(map[uuid.UUID]*memRow[domain.Payment]),
		paymentKeys: make(map[string]uuid.UUID),
		attempts:    make(map[uuid.UUID]*memRow[domain.PaymentAttempt]),
	}
}

func (s *memStore) next() int64 {
	s.seq++
	return s.seq
}

func (s *memStore) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *memStore) attemptsFor(orderID uuid.UUID) []domain.PaymentAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PaymentAttempt
	for _, row := range s.attempts {
		if row.val.OrderID == orderID {
			out = append(out, row.val)
		}
	}
	return out
}

func (s *memStore) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

// --- Transactor ---

type inMemoryTransactor struct{}

func (inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

// memTx records undo functions for writes made inside it.
type memTx struct {
	mu   sync.Mutex
	undo []func()
	done bool
}

func (t *memTx) onRollback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, fn)
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

func asMemTx(tx pgx.Tx) (*memTx, error) {
	mt, ok := tx.(*memTx)
	if !ok {
		return nil, fmt.Errorf("unexpected tx type %T", tx)
	}
	return mt, nil
}

// --- Orders ---

type inMemoryOrderRepo struct{ s *memStore }

func (r *inMemoryOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders[o.ID] = &memRow[domain.Order]{seq: r.s.next(), val: *o}
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	o := row.val
	return &o, nil
}

func (r *inMemoryOrderRepo) List(ctx context.Context, params ports.OrderListParams) ([]domain.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := make([]*memRow[domain.Order], 0, len(r.s.orders))
	for _, row := range r.s.orders {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	total := int64(len(rows))
	start := (params.Page - 1) * params.PageSize
	if start >= len(rows) {
		return []domain.Order{}, total, nil
	}
	end := start + params.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]domain.Order, 0, end-start)
	for _, row := range rows[start:end] {
		out = append(out, row.val)
	}
	return out, total, nil
}

// UpdateStatus mirrors the SQL guard: a paid order is never updated.
func (r *inMemoryOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error {
	mt, err := asMemTx(tx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.orders[id]
	if !ok || row.val.Status == domain.OrderStatusPaid {
		return domain.ErrOrderAlreadyPaid
	}
	prev := row.val
	row.val.Status = status
	mt.onRollback(func() {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		row.val = prev
	})
	return nil
}

// --- Payments ---

type inMemoryPaymentRepo struct{ s *memStore }

func (r *inMemoryPaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	mt, err := asMemTx(tx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.IdempotencyKey != nil {
		if _, taken := r.s.paymentKeys[*p.IdempotencyKey]; taken {
			return domain.ErrIdempotencyKeyConflict
		}
		r.s.paymentKeys[*p.IdempotencyKey] = p.ID
	}
	r.s.payments[p.ID] = &memRow[domain.Payment]{seq: r.s.next(), val: *p}

	mt.onRollback(func() {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		delete(r.s.payments, p.ID)
		if p.IdempotencyKey != nil {
			delete(r.s.paymentKeys, *p.IdempotencyKey)
		}
	})
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	p := row.val
	return &p, nil
}

func (r *inMemoryPaymentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	r.s.mu.Lock()
	id, ok := r.s.paymentKeys[key]
	r.s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *inMemoryPaymentRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.listLocked(orderID), nil
}

func (r *inMemoryPaymentRepo) ListByOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[uuid.UUID][]domain.Payment, len(orderIDs))
	for _, id := range orderIDs {
		if ps := r.listLocked(id); len(ps) > 0 {
			out[id] = ps
		}
	}
	return out, nil
}

func (r *inMemoryPaymentRepo) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.listLocked(orderID))), nil
}

// listLocked returns an order's payments oldest first. Caller holds s.mu.
func (r *inMemoryPaymentRepo) listLocked(orderID uuid.UUID) []domain.Payment {
	var rows []*memRow[domain.Payment]
	for _, row := range r.s.payments {
		if row.val.OrderID == orderID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.val)
	}
	return out
}

// --- Attempts ---

type inMemoryAttemptRepo struct{ s *memStore }

func (r *inMemoryAttemptRepo) Create(ctx context.Context, a *domain.PaymentAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.attempts[a.ID] = &memRow[domain.PaymentAttempt]{seq: r.s.next(), val: *a}
	return nil
}

func (r *inMemoryAttemptRepo) CreateTx(ctx context.Context, tx pgx.Tx, a *domain.PaymentAttempt) error {
	mt, err := asMemTx(tx)
	if err != nil {
		return err
	}
	if err := r.Create(ctx, a); err != nil {
		return err
	}
	mt.onRollback(func() {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		delete(r.s.attempts, a.ID)
	})
	return nil
}

// ListByOrder returns attempts newest first.
func (r *inMemoryAttemptRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []*memRow[domain.PaymentAttempt]
	for _, row := range r.s.attempts {
		if row.val.OrderID == orderID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]domain.PaymentAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.val)
	}
	return out, nil
}
