// Package memstore is an in-memory cashregister.Repository. Transactions are
// serialized under one mutex and applied copy-on-commit, so a failed
// transaction leaves no trace.
package memstore

import (
	"context"
	"sync"
	"time"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"
)

var _ cashregister.Repository = (*Store)(nil)

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time

	failMu   sync.Mutex
	failures map[string]error
}

func New() *Store {
	return &Store{
		st:       newState(),
		now:      time.Now,
		failures: map[string]error{},
	}
}

// SetClock replaces the timestamp source used for created_at columns.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNext makes the next call of the named write (e.g. "CreateAuditLog")
// return err.
func (s *Store) FailNext(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailure(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	err := s.failures[op]
	delete(s.failures, op)
	return err
}

// AddBranch seeds a branch and returns it with its id.
func (s *Store) AddBranch(b models.Branch) models.Branch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.seq.branch++
	b.ID = s.st.seq.branch
	b.CreatedAt, b.UpdatedAt = s.now(), s.now()
	s.st.branches[b.ID] = b
	return b
}

// AddUser seeds a user and returns it with its id.
func (s *Store) AddUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.seq.user++
	u.ID = s.st.seq.user
	u.CreatedAt, u.UpdatedAt = s.now(), s.now()
	s.st.users[u.ID] = u
	return u
}

func (s *Store) Transaction(ctx context.Context, fn func(tx cashregister.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s, st: s.st.clone()}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = t.st
	return nil
}

// Snapshot hands fn a private copy; anything it writes is discarded.
func (s *Store) Snapshot(ctx context.Context, fn func(tx cashregister.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&tx{store: s, st: s.st.clone()})
}

func (s *Store) view() *tx {
	return &tx{store: s, st: s.st}
}

func read[T any](s *Store, fn func(t *tx) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.view())
}

func write(s *Store, fn func(t *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.view())
}

func (s *Store) GetBranch(ctx context.Context, id uint) (*models.Branch, error) {
	return read(s, func(t *tx) (*models.Branch, error) { return t.GetBranch(ctx, id) })
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return read(s, func(t *tx) (*models.User, error) { return t.GetUser(ctx, id) })
}

func (s *Store) CreateRegister(ctx context.Context, r *models.CashRegister) error {
	return write(s, func(t *tx) error { return t.CreateRegister(ctx, r) })
}

func (s *Store) GetRegister(ctx context.Context, id uint) (*models.CashRegister, error) {
	return read(s, func(t *tx) (*models.CashRegister, error) { return t.GetRegister(ctx, id) })
}

func (s *Store) LockRegister(ctx context.Context, id uint) (*models.CashRegister, error) {
	return s.GetRegister(ctx, id)
}

func (s *Store) ListRegisters(ctx context.Context, branchID *uint) ([]models.CashRegister, error) {
	return read(s, func(t *tx) ([]models.CashRegister, error) { return t.ListRegisters(ctx, branchID) })
}

func (s *Store) SetRegisterInUse(ctx context.Context, id uint, inUse bool) error {
	return write(s, func(t *tx) error { return t.SetRegisterInUse(ctx, id, inUse) })
}

func (s *Store) SetRegisterActive(ctx context.Context, id uint, active bool) error {
	return write(s, func(t *tx) error { return t.SetRegisterActive(ctx, id, active) })
}

func (s *Store) CreateSession(ctx context.Context, sess *models.CashRegisterSession) error {
	return write(s, func(t *tx) error { return t.CreateSession(ctx, sess) })
}

func (s *Store) GetSession(ctx context.Context, id uint) (*models.CashRegisterSession, error) {
	return read(s, func(t *tx) (*models.CashRegisterSession, error) { return t.GetSession(ctx, id) })
}

func (s *Store) LockSession(ctx context.Context, id uint, _ cashregister.LockMode) (*models.CashRegisterSession, error) {
	return s.GetSession(ctx, id)
}

func (s *Store) FindOpenSession(ctx context.Context, registerID uint) (*models.CashRegisterSession, error) {
	return read(s, func(t *tx) (*models.CashRegisterSession, error) { return t.FindOpenSession(ctx, registerID) })
}

func (s *Store) CloseSession(ctx context.Context, sess *models.CashRegisterSession) error {
	return write(s, func(t *tx) error { return t.CloseSession(ctx, sess) })
}

func (s *Store) ListSessions(ctx context.Context, f cashregister.SessionFilter) ([]models.CashRegisterSession, error) {
	return read(s, func(t *tx) ([]models.CashRegisterSession, error) { return t.ListSessions(ctx, f) })
}

func (s *Store) CreateMovement(ctx context.Context, m *models.SessionCashMovement) error {
	return write(s, func(t *tx) error { return t.CreateMovement(ctx, m) })
}

func (s *Store) ListMovements(ctx context.Context, sessionID uint, page cashregister.Page) ([]models.SessionCashMovement, error) {
	return read(s, func(t *tx) ([]models.SessionCashMovement, error) { return t.ListMovements(ctx, sessionID, page) })
}

func (s *Store) SumMovements(ctx context.Context, sessionID uint) (cashregister.MovementTotals, error) {
	return read(s, func(t *tx) (cashregister.MovementTotals, error) { return t.SumMovements(ctx, sessionID) })
}

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	return write(s, func(t *tx) error { return t.CreatePayment(ctx, p) })
}

func (s *Store) LockPayment(ctx context.Context, id uint) (*models.Payment, error) {
	return read(s, func(t *tx) (*models.Payment, error) { return t.LockPayment(ctx, id) })
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id uint, status models.PaymentStatus) error {
	return write(s, func(t *tx) error { return t.UpdatePaymentStatus(ctx, id, status) })
}

func (s *Store) SumCompletedCashPayments(ctx context.Context, sessionID uint) (money.Money, error) {
	return read(s, func(t *tx) (money.Money, error) { return t.SumCompletedCashPayments(ctx, sessionID) })
}

func (s *Store) ListClosedDifferences(ctx context.Context, branchID *uint, from, to time.Time) ([]cashregister.DifferenceRow, error) {
	return read(s, func(t *tx) ([]cashregister.DifferenceRow, error) {
		return t.ListClosedDifferences(ctx, branchID, from, to)
	})
}

func (s *Store) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	return write(s, func(t *tx) error { return t.CreateAuditLog(ctx, l) })
}

func (s *Store) ListAuditLogs(ctx context.Context, f audit.Filter) ([]models.AuditLog, error) {
	return read(s, func(t *tx) ([]models.AuditLog, error) { return t.ListAuditLogs(ctx, f) })
}
