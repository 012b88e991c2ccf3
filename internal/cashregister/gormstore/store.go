// Package gormstore is the Postgres cashregister.Repository. Row locks are
// taken with SELECT ... FOR UPDATE / FOR SHARE through gorm's clause API and
// are held until the surrounding transaction ends.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ cashregister.Repository = (*Store)(nil)

const (
	lockUpdate = "UPDATE"
	lockShare  = "SHARE"
)

type Store struct {
	db *gorm.DB
}

// New wraps a connection opened with TranslateError enabled.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// translate maps gorm sentinels onto the repository's.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, cashregister.ErrRecordNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, cashregister.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func paginate(q *gorm.DB, p cashregister.Page) *gorm.DB {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}

func (s *Store) Transaction(ctx context.Context, fn func(tx cashregister.Repository) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Snapshot uses a read-only REPEATABLE READ transaction: every statement in
// fn sees the database as of its first query.
func (s *Store) Snapshot(ctx context.Context, fn func(tx cashregister.Repository) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

func (s *Store) GetBranch(ctx context.Context, id uint) (*models.Branch, error) {
	var b models.Branch
	if err := s.conn(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err, "get branch")
	}
	return &b, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (s *Store) CreateRegister(ctx context.Context, r *models.CashRegister) error {
	return translate(s.conn(ctx).Create(r).Error, "create register")
}

func (s *Store) GetRegister(ctx context.Context, id uint) (*models.CashRegister, error) {
	var r models.CashRegister
	if err := s.conn(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err, "get register")
	}
	return &r, nil
}

func (s *Store) LockRegister(ctx context.Context, id uint) (*models.CashRegister, error) {
	var r models.CashRegister
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: lockUpdate}).
		First(&r, id).Error
	if err != nil {
		return nil, translate(err, "lock register")
	}
	return &r, nil
}

func (s *Store) ListRegisters(ctx context.Context, branchID *uint) ([]models.CashRegister, error) {
	var out []models.CashRegister
	q := s.conn(ctx).Order("id ASC")
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err, "list registers")
	}
	return out, nil
}

func (s *Store) SetRegisterInUse(ctx context.Context, id uint, inUse bool) error {
	res := s.conn(ctx).Model(&models.CashRegister{}).Where("id = ?", id).Update("in_use", inUse)
	if res.Error != nil {
		return translate(res.Error, "set register in use")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set register in use: %w", cashregister.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) SetRegisterActive(ctx context.Context, id uint, active bool) error {
	res := s.conn(ctx).Model(&models.CashRegister{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return translate(res.Error, "set register active")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set register active: %w", cashregister.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, sess *models.CashRegisterSession) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(sess).Error, "create session")
}

func (s *Store) GetSession(ctx context.Context, id uint) (*models.CashRegisterSession, error) {
	var sess models.CashRegisterSession
	if err := s.conn(ctx).First(&sess, id).Error; err != nil {
		return nil, translate(err, "get session")
	}
	return &sess, nil
}

func (s *Store) LockSession(ctx context.Context, id uint, mode cashregister.LockMode) (*models.CashRegisterSession, error) {
	strength := lockShare
	if mode == cashregister.LockUpdate {
		strength = lockUpdate
	}

	var sess models.CashRegisterSession
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: strength}).
		First(&sess, id).Error
	if err != nil {
		return nil, translate(err, "lock session")
	}
	return &sess, nil
}

func (s *Store) FindOpenSession(ctx context.Context, registerID uint) (*models.CashRegisterSession, error) {
	var sess models.CashRegisterSession
	err := s.conn(ctx).
		Where("register_id = ? AND status = ?", registerID, models.SessionOpen).
		First(&sess).Error
	if err != nil {
		return nil, translate(err, "find open session")
	}
	return &sess, nil
}

// CloseSession writes the closing fields in one UPDATE guarded by
// status = 'OPEN'.
func (s *Store) CloseSession(ctx context.Context, sess *models.CashRegisterSession) error {
	res := s.conn(ctx).
		Model(&models.CashRegisterSession{}).
		Where("id = ? AND status = ?", sess.ID, models.SessionOpen).
		Updates(map[string]any{
			"status":                sess.Status,
			"closed_by":             sess.ClosedBy,
			"closed_at":             sess.ClosedAt,
			"closing_cash_balance":  sess.ClosingCashBalance,
			"calculated_cash_total": sess.CalculatedCashTotal,
			"cash_difference":       sess.CashDifference,
			"notes":                 sess.Notes,
		})
	if res.Error != nil {
		return translate(res.Error, "close session")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("close session %d: %w", sess.ID, cashregister.ErrStaleWrite)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, f cashregister.SessionFilter) ([]models.CashRegisterSession, error) {
	q := s.conn(ctx).Model(&models.CashRegisterSession{}).Select("cash_register_sessions.*")
	if f.BranchID != nil {
		q = q.Joins("JOIN cash_registers ON cash_registers.id = cash_register_sessions.register_id").
			Where("cash_registers.branch_id = ?", *f.BranchID)
	}
	if f.RegisterID != nil {
		q = q.Where("cash_register_sessions.register_id = ?", *f.RegisterID)
	}
	if f.Status != "" {
		q = q.Where("cash_register_sessions.status = ?", f.Status)
	}

	var out []models.CashRegisterSession
	err := paginate(q, f.Page).
		Order("cash_register_sessions.opened_at DESC, cash_register_sessions.id DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "list sessions")
	}
	return out, nil
}

func (s *Store) CreateMovement(ctx context.Context, m *models.SessionCashMovement) error {
	return translate(s.conn(ctx).Create(m).Error, "create movement")
}

func (s *Store) ListMovements(ctx context.Context, sessionID uint, page cashregister.Page) ([]models.SessionCashMovement, error) {
	var out []models.SessionCashMovement
	err := paginate(s.conn(ctx).Where("session_id = ?", sessionID), page).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "list movements")
	}
	return out, nil
}

func (s *Store) SumMovements(ctx context.Context, sessionID uint) (cashregister.MovementTotals, error) {
	var totals cashregister.MovementTotals

	rows, err := s.conn(ctx).
		Model(&models.SessionCashMovement{}).
		Select("type, COALESCE(SUM(amount), 0)").
		Where("session_id = ?", sessionID).
		Group("type").
		Rows()
	if err != nil {
		return totals, translate(err, "sum movements")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ models.MovementType
			sum money.Money
		)
		if err := rows.Scan(&typ, &sum); err != nil {
			return totals, fmt.Errorf("scan movement totals: %w", err)
		}
		switch typ {
		case models.MovementInflow:
			totals.Inflow = sum
		case models.MovementOutflow:
			totals.Outflow = sum
		}
	}
	if err := rows.Err(); err != nil {
		return totals, fmt.Errorf("sum movements: %w", err)
	}
	return totals, nil
}

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	return translate(s.conn(ctx).Create(p).Error, "create payment")
}

func (s *Store) LockPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: lockUpdate}).
		First(&p, id).Error
	if err != nil {
		return nil, translate(err, "lock payment")
	}
	return &p, nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id uint, status models.PaymentStatus) error {
	res := s.conn(ctx).Model(&models.Payment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(res.Error, "update payment status")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update payment status: %w", cashregister.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) SumCompletedCashPayments(ctx context.Context, sessionID uint) (money.Money, error) {
	var total money.Money
	err := s.conn(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("session_id = ? AND status = ? AND method = ?", sessionID, models.PaymentCompleted, models.PaymentCash).
		Row().
		Scan(&total)
	if err != nil {
		return money.Zero, translate(err, "sum cash payments")
	}
	return total, nil
}

func (s *Store) ListClosedDifferences(ctx context.Context, branchID *uint, from, to time.Time) ([]cashregister.DifferenceRow, error) {
	type row struct {
		SessionID      uint        `gorm:"column:session_id"`
		ClosedAt       time.Time   `gorm:"column:closed_at"`
		CashDifference money.Money `gorm:"column:cash_difference"`
	}

	q := s.conn(ctx).
		Table("cash_register_sessions AS s").
		Select("s.id AS session_id, s.closed_at, s.cash_difference").
		Where("s.status = ? AND s.cash_difference IS NOT NULL", models.SessionClosed).
		Where("s.closed_at >= ? AND s.closed_at < ?", from, to)
	if branchID != nil {
		q = q.Joins("JOIN cash_registers r ON r.id = s.register_id").Where("r.branch_id = ?", *branchID)
	}

	var rows []row
	if err := q.Order("s.closed_at ASC").Scan(&rows).Error; err != nil {
		return nil, translate(err, "list closed differences")
	}

	out := make([]cashregister.DifferenceRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, cashregister.DifferenceRow{
			SessionID:      r.SessionID,
			ClosedAt:       r.ClosedAt,
			CashDifference: r.CashDifference,
		})
	}
	return out, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	return translate(s.conn(ctx).Create(l).Error, "create audit log")
}

func (s *Store) ListAuditLogs(ctx context.Context, f audit.Filter) ([]models.AuditLog, error) {
	q := s.conn(ctx).Model(&models.AuditLog{})
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != nil {
		q = q.Where("entity_id = ?", *f.EntityID)
	}

	var out []models.AuditLog
	err := paginate(q, cashregister.Page{Limit: f.Limit, Offset: f.Offset}).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "list audit logs")
	}
	return out, nil
}
