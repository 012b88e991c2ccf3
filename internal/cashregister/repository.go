package cashregister

import (
	"context"
	"errors"
	"time"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"
)

// ErrRecordNotFound is returned by Repository lookups that match no row.
// The service turns it into a NotFound domain error.
var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicate is returned when a write violates a uniqueness rule, such as
// a second OPEN session on one register.
var ErrDuplicate = errors.New("duplicate record")

// ErrStaleWrite is returned when a guarded update matched no row, such as
// closing a session that is no longer OPEN.
var ErrStaleWrite = errors.New("stale write")

// LockMode selects the row lock taken on a session inside a transaction.
type LockMode int

const (
	// LockShare lets concurrent movement/payment inserts proceed together
	// while excluding a concurrent close.
	LockShare LockMode = iota
	// LockUpdate is exclusive and is taken by close.
	LockUpdate
)

// Page bounds a listing. Limit 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}

// SessionFilter narrows ListSessions.
type SessionFilter struct {
	BranchID   *uint
	RegisterID *uint
	Status     models.SessionStatus
	Page       Page
}

// MovementTotals are the per-type sums of a session's movements.
type MovementTotals struct {
	Inflow  money.Money
	Outflow money.Money
}

// Net is inflows minus outflows.
func (t MovementTotals) Net() money.Money {
	return t.Inflow.Sub(t.Outflow)
}

// DifferenceRow is one closed session's contribution to the difference report.
type DifferenceRow struct {
	SessionID      uint
	ClosedAt       time.Time
	CashDifference money.Money
}

// Repository is the durable store behind the service. Implementations must
// make Transaction all-or-nothing and honor the lock methods for the
// duration of the enclosing transaction.
type Repository interface {
	// Transaction runs fn against a transactional view of the store. A
	// returned error rolls back every write made through that view.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	// Snapshot runs fn read-only against one consistent view of the store,
	// so several reads inside it agree with each other.
	Snapshot(ctx context.Context, fn func(tx Repository) error) error

	GetBranch(ctx context.Context, id uint) (*models.Branch, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)

	CreateRegister(ctx context.Context, r *models.CashRegister) error
	GetRegister(ctx context.Context, id uint) (*models.CashRegister, error)
	// LockRegister reads the register row FOR UPDATE.
	LockRegister(ctx context.Context, id uint) (*models.CashRegister, error)
	ListRegisters(ctx context.Context, branchID *uint) ([]models.CashRegister, error)
	SetRegisterInUse(ctx context.Context, id uint, inUse bool) error
	SetRegisterActive(ctx context.Context, id uint, active bool) error

	CreateSession(ctx context.Context, s *models.CashRegisterSession) error
	GetSession(ctx context.Context, id uint) (*models.CashRegisterSession, error)
	LockSession(ctx context.Context, id uint, mode LockMode) (*models.CashRegisterSession, error)
	// FindOpenSession returns ErrRecordNotFound when the register is free.
	FindOpenSession(ctx context.Context, registerID uint) (*models.CashRegisterSession, error)
	// CloseSession writes every closing field of s in one statement.
	CloseSession(ctx context.Context, s *models.CashRegisterSession) error
	ListSessions(ctx context.Context, f SessionFilter) ([]models.CashRegisterSession, error)

	CreateMovement(ctx context.Context, m *models.SessionCashMovement) error
	ListMovements(ctx context.Context, sessionID uint, page Page) ([]models.SessionCashMovement, error)
	SumMovements(ctx context.Context, sessionID uint) (MovementTotals, error)

	CreatePayment(ctx context.Context, p *models.Payment) error
	LockPayment(ctx context.Context, id uint) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id uint, status models.PaymentStatus) error
	SumCompletedCashPayments(ctx context.Context, sessionID uint) (money.Money, error)

	ListClosedDifferences(ctx context.Context, branchID *uint, from, to time.Time) ([]DifferenceRow, error)

	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
	ListAuditLogs(ctx context.Context, f audit.Filter) ([]models.AuditLog, error)
}
