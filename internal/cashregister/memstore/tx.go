package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"
)

// tx operates on a state without locking. The Store holds its mutex for as
// long as a tx is in use.
type tx struct {
	store *Store
	st    *state
}

var _ cashregister.Repository = (*tx)(nil)

func (t *tx) Transaction(ctx context.Context, fn func(tx cashregister.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t)
}

func (t *tx) Snapshot(ctx context.Context, fn func(tx cashregister.Repository) error) error {
	return t.Transaction(ctx, fn)
}

func (t *tx) now() time.Time {
	return t.store.now()
}

func notFound(what string, id uint) error {
	return fmt.Errorf("%s %d: %w", what, id, cashregister.ErrRecordNotFound)
}

func page[T any](rows []T, p cashregister.Page) []T {
	if p.Offset >= len(rows) {
		return []T{}
	}
	rows = rows[p.Offset:]
	if p.Limit > 0 && p.Limit < len(rows) {
		rows = rows[:p.Limit]
	}
	return rows
}

func (t *tx) GetBranch(_ context.Context, id uint) (*models.Branch, error) {
	b, ok := t.st.branches[id]
	if !ok {
		return nil, notFound("branch", id)
	}
	return &b, nil
}

func (t *tx) GetUser(_ context.Context, id uint) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (t *tx) CreateRegister(_ context.Context, r *models.CashRegister) error {
	if err := t.store.takeFailure("CreateRegister"); err != nil {
		return err
	}
	if _, ok := t.st.branches[r.BranchID]; !ok {
		return notFound("branch", r.BranchID)
	}
	for _, other := range t.st.registers {
		if other.BranchID == r.BranchID && other.Name == r.Name {
			return fmt.Errorf("register %q: %w", r.Name, cashregister.ErrDuplicate)
		}
	}
	t.st.seq.register++
	r.ID = t.st.seq.register
	r.CreatedAt, r.UpdatedAt = t.now(), t.now()
	t.st.registers[r.ID] = *r
	return nil
}

func (t *tx) GetRegister(_ context.Context, id uint) (*models.CashRegister, error) {
	r, ok := t.st.registers[id]
	if !ok {
		return nil, notFound("register", id)
	}
	return &r, nil
}

func (t *tx) LockRegister(ctx context.Context, id uint) (*models.CashRegister, error) {
	return t.GetRegister(ctx, id)
}

func (t *tx) ListRegisters(_ context.Context, branchID *uint) ([]models.CashRegister, error) {
	out := make([]models.CashRegister, 0, len(t.st.registers))
	for _, r := range t.st.registers {
		if branchID != nil && r.BranchID != *branchID {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b models.CashRegister) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *tx) SetRegisterInUse(_ context.Context, id uint, inUse bool) error {
	if err := t.store.takeFailure("SetRegisterInUse"); err != nil {
		return err
	}
	r, ok := t.st.registers[id]
	if !ok {
		return notFound("register", id)
	}
	r.InUse = inUse
	r.UpdatedAt = t.now()
	t.st.registers[id] = r
	return nil
}

func (t *tx) SetRegisterActive(_ context.Context, id uint, active bool) error {
	r, ok := t.st.registers[id]
	if !ok {
		return notFound("register", id)
	}
	r.Active = active
	r.UpdatedAt = t.now()
	t.st.registers[id] = r
	return nil
}

func (t *tx) CreateSession(ctx context.Context, s *models.CashRegisterSession) error {
	if err := t.store.takeFailure("CreateSession"); err != nil {
		return err
	}
	if _, ok := t.st.registers[s.RegisterID]; !ok {
		return notFound("register", s.RegisterID)
	}
	// mirrors the partial unique index on (register_id) WHERE status = 'OPEN'
	if s.Status == models.SessionOpen {
		if _, err := t.FindOpenSession(ctx, s.RegisterID); err == nil {
			return fmt.Errorf("open session on register %d: %w", s.RegisterID, cashregister.ErrDuplicate)
		}
	}
	t.st.seq.session++
	s.ID = t.st.seq.session
	s.CreatedAt, s.UpdatedAt = t.now(), t.now()
	t.st.sessions[s.ID] = *s
	return nil
}

func (t *tx) GetSession(_ context.Context, id uint) (*models.CashRegisterSession, error) {
	s, ok := t.st.sessions[id]
	if !ok {
		return nil, notFound("session", id)
	}
	return &s, nil
}

func (t *tx) LockSession(ctx context.Context, id uint, _ cashregister.LockMode) (*models.CashRegisterSession, error) {
	return t.GetSession(ctx, id)
}

func (t *tx) FindOpenSession(_ context.Context, registerID uint) (*models.CashRegisterSession, error) {
	for _, s := range t.st.sessions {
		if s.RegisterID == registerID && s.Status == models.SessionOpen {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("open session on register %d: %w", registerID, cashregister.ErrRecordNotFound)
}

func (t *tx) CloseSession(_ context.Context, s *models.CashRegisterSession) error {
	if err := t.store.takeFailure("CloseSession"); err != nil {
		return err
	}
	cur, ok := t.st.sessions[s.ID]
	if !ok {
		return notFound("session", s.ID)
	}
	if cur.Status != models.SessionOpen {
		return fmt.Errorf("session %d: %w", s.ID, cashregister.ErrStaleWrite)
	}
	cur.Status = s.Status
	cur.ClosedBy = s.ClosedBy
	cur.ClosedAt = s.ClosedAt
	cur.ClosingCashBalance = s.ClosingCashBalance
	cur.CalculatedCashTotal = s.CalculatedCashTotal
	cur.CashDifference = s.CashDifference
	cur.Notes = s.Notes
	cur.UpdatedAt = t.now()
	t.st.sessions[s.ID] = cur
	s.UpdatedAt = cur.UpdatedAt
	return nil
}

func (t *tx) ListSessions(_ context.Context, f cashregister.SessionFilter) ([]models.CashRegisterSession, error) {
	out := make([]models.CashRegisterSession, 0)
	for _, s := range t.st.sessions {
		if f.RegisterID != nil && s.RegisterID != *f.RegisterID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.BranchID != nil && t.st.registers[s.RegisterID].BranchID != *f.BranchID {
			continue
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b models.CashRegisterSession) int {
		if c := b.OpenedAt.Compare(a.OpenedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return page(out, f.Page), nil
}

func (t *tx) CreateMovement(_ context.Context, m *models.SessionCashMovement) error {
	if err := t.store.takeFailure("CreateMovement"); err != nil {
		return err
	}
	if _, ok := t.st.sessions[m.SessionID]; !ok {
		return notFound("session", m.SessionID)
	}
	t.st.seq.movement++
	m.ID = t.st.seq.movement
	if m.CreatedAt.IsZero() {
		m.CreatedAt = t.now()
	}
	t.st.movements = append(t.st.movements, *m)
	return nil
}

func (t *tx) sessionMovements(sessionID uint) []models.SessionCashMovement {
	out := make([]models.SessionCashMovement, 0)
	for _, m := range t.st.movements {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b models.SessionCashMovement) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (t *tx) ListMovements(_ context.Context, sessionID uint, p cashregister.Page) ([]models.SessionCashMovement, error) {
	return page(t.sessionMovements(sessionID), p), nil
}

func (t *tx) SumMovements(_ context.Context, sessionID uint) (cashregister.MovementTotals, error) {
	var totals cashregister.MovementTotals
	for _, m := range t.sessionMovements(sessionID) {
		switch m.Type {
		case models.MovementInflow:
			totals.Inflow = totals.Inflow.Add(m.Amount)
		case models.MovementOutflow:
			totals.Outflow = totals.Outflow.Add(m.Amount)
		}
	}
	return totals, nil
}

func (t *tx) CreatePayment(_ context.Context, p *models.Payment) error {
	if err := t.store.takeFailure("CreatePayment"); err != nil {
		return err
	}
	if p.SessionID != nil {
		if _, ok := t.st.sessions[*p.SessionID]; !ok {
			return notFound("session", *p.SessionID)
		}
	}
	t.st.seq.payment++
	p.ID = t.st.seq.payment
	p.CreatedAt, p.UpdatedAt = t.now(), t.now()
	t.st.payments[p.ID] = *p
	return nil
}

func (t *tx) LockPayment(_ context.Context, id uint) (*models.Payment, error) {
	p, ok := t.st.payments[id]
	if !ok {
		return nil, notFound("payment", id)
	}
	return &p, nil
}

func (t *tx) UpdatePaymentStatus(_ context.Context, id uint, status models.PaymentStatus) error {
	p, ok := t.st.payments[id]
	if !ok {
		return notFound("payment", id)
	}
	p.Status = status
	p.UpdatedAt = t.now()
	t.st.payments[id] = p
	return nil
}

func (t *tx) SumCompletedCashPayments(_ context.Context, sessionID uint) (money.Money, error) {
	total := money.Zero
	for _, p := range t.st.payments {
		if p.SessionID == nil || *p.SessionID != sessionID {
			continue
		}
		if p.Status == models.PaymentCompleted && p.Method == models.PaymentCash {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (t *tx) ListClosedDifferences(_ context.Context, branchID *uint, from, to time.Time) ([]cashregister.DifferenceRow, error) {
	out := make([]cashregister.DifferenceRow, 0)
	for _, s := range t.st.sessions {
		if s.Status != models.SessionClosed || s.ClosedAt == nil || s.CashDifference == nil {
			continue
		}
		if s.ClosedAt.Before(from) || !s.ClosedAt.Before(to) {
			continue
		}
		if branchID != nil && t.st.registers[s.RegisterID].BranchID != *branchID {
			continue
		}
		out = append(out, cashregister.DifferenceRow{
			SessionID:      s.ID,
			ClosedAt:       *s.ClosedAt,
			CashDifference: *s.CashDifference,
		})
	}
	slices.SortFunc(out, func(a, b cashregister.DifferenceRow) int { return a.ClosedAt.Compare(b.ClosedAt) })
	return out, nil
}

func (t *tx) CreateAuditLog(_ context.Context, l *models.AuditLog) error {
	if err := t.store.takeFailure("CreateAuditLog"); err != nil {
		return err
	}
	t.st.seq.audit++
	l.ID = t.st.seq.audit
	l.CreatedAt = t.now()
	t.st.audit = append(t.st.audit, *l)
	return nil
}

func (t *tx) ListAuditLogs(_ context.Context, f audit.Filter) ([]models.AuditLog, error) {
	out := make([]models.AuditLog, 0)
	for _, l := range t.st.audit {
		if f.BranchID != nil && (l.BranchID == nil || *l.BranchID != *f.BranchID) {
			continue
		}
		if f.UserID != nil && l.UserID != *f.UserID {
			continue
		}
		if f.EntityType != "" && l.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != nil && l.EntityID != *f.EntityID {
			continue
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b models.AuditLog) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return page(out, cashregister.Page{Limit: f.Limit, Offset: f.Offset}), nil
}
