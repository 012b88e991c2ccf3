package cashregister

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"
	"kasa-backend/internal/notify"

	"go.uber.org/zap"
)

type OpenInput struct {
	RegisterID         uint
	UserID             uint
	OpeningCashBalance money.Money
}

type CloseInput struct {
	SessionID          uint
	UserID             uint
	ClosingCashBalance money.Money
	Notes              string
}

// SessionSummary is the reconciliation view of a session. ExpectedCashTotal
// is evaluated on demand; the closing fields are the stored close-time values
// and stay nil while the session is open.
type SessionSummary struct {
	SessionID           uint                 `json:"session_id"`
	RegisterID          uint                 `json:"register_id"`
	Status              models.SessionStatus `json:"status"`
	OpenedBy            uint                 `json:"opened_by"`
	OpenedAt            time.Time            `json:"opened_at"`
	ClosedBy            *uint                `json:"closed_by"`
	ClosedAt            *time.Time           `json:"closed_at"`
	OpeningCashBalance  money.Money          `json:"opening_cash_balance"`
	CashMovementsNet    money.Money          `json:"cash_movements_net"`
	CashPaymentsTotal   money.Money          `json:"cash_payments_total"`
	ExpectedCashTotal   money.Money          `json:"expected_cash_total"`
	ClosingCashBalance  *money.Money         `json:"closing_cash_balance"`
	CalculatedCashTotal *money.Money         `json:"calculated_cash_total"`
	CashDifference      *money.Money         `json:"cash_difference"`
	Notes               string               `json:"notes"`
}

// sessionSnapshot is the audit representation of a session row.
func sessionSnapshot(s *models.CashRegisterSession) map[string]any {
	snap := map[string]any{
		"id":                   s.ID,
		"register_id":          s.RegisterID,
		"status":               s.Status,
		"opened_by":            s.OpenedBy,
		"opened_at":            s.OpenedAt.Format(time.RFC3339),
		"opening_cash_balance": s.OpeningCashBalance,
	}
	if s.ClosedAt != nil {
		snap["closed_by"] = s.ClosedBy
		snap["closed_at"] = s.ClosedAt.Format(time.RFC3339)
		snap["closing_cash_balance"] = s.ClosingCashBalance
		snap["calculated_cash_total"] = s.CalculatedCashTotal
		snap["cash_difference"] = s.CashDifference
		snap["notes"] = s.Notes
	}
	return snap
}

// OpenSession starts a shift on a register.
func (s *Service) OpenSession(ctx context.Context, in OpenInput) (*models.CashRegisterSession, error) {
	if in.OpeningCashBalance.IsNegative() {
		return nil, newError(CodeInvalidAmount, "opening_cash_balance", "opening cash balance cannot be negative")
	}
	if !in.OpeningCashBalance.InRange() {
		return nil, tooLarge("opening_cash_balance")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var session *models.CashRegisterSession
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		user, err := tx.GetUser(ctx, in.UserID)
		if err != nil {
			return lookupErr(err, "user")
		}

		register, err := s.acquire(ctx, tx, in.RegisterID, user)
		if err != nil {
			return err
		}

		session = &models.CashRegisterSession{
			RegisterID:         register.ID,
			OpenedBy:           user.ID,
			OpenedAt:           s.now(),
			Status:             models.SessionOpen,
			OpeningCashBalance: in.OpeningCashBalance,
		}
		if err := tx.CreateSession(ctx, session); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return newError(CodeRegisterUnavailable, "", "this register is already open")
			}
			return fmt.Errorf("create session: %w", err)
		}

		return audit.WriteLog(ctx, tx, audit.LogOptions{
			BranchID:    &register.BranchID,
			UserID:      user.ID,
			UserName:    user.Name,
			EntityType:  audit.EntitySession,
			EntityID:    session.ID,
			Action:      models.AuditActionOpen,
			Description: fmt.Sprintf("Register %q opened with %s", register.Name, in.OpeningCashBalance),
			After:       sessionSnapshot(session),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cash register session opened",
		zap.Uint("session_id", session.ID),
		zap.Uint("register_id", session.RegisterID),
		zap.Uint("user_id", session.OpenedBy),
		zap.String("opening_cash_balance", session.OpeningCashBalance.String()),
	)

	return session, nil
}

// CloseSession counts the drawer against the expected cash and closes the
// session. A second close is rejected with InvalidState.
func (s *Service) CloseSession(ctx context.Context, in CloseInput) (*models.CashRegisterSession, error) {
	if in.ClosingCashBalance.IsNegative() {
		return nil, newError(CodeInvalidAmount, "closing_cash_balance", "closing cash balance cannot be negative")
	}
	if !in.ClosingCashBalance.InRange() {
		return nil, tooLarge("closing_cash_balance")
	}
	notes := strings.TrimSpace(in.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return nil, newError(CodeInvalidInput, "notes", fmt.Sprintf("notes cannot be longer than %d characters", maxNotesLen))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		session *models.CashRegisterSession
		event   notify.SessionClosedEvent
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		user, err := tx.GetUser(ctx, in.UserID)
		if err != nil {
			return lookupErr(err, "user")
		}

		session, err = tx.LockSession(ctx, in.SessionID, LockUpdate)
		if err != nil {
			return lookupErr(err, "session")
		}
		if !session.IsOpen() {
			return newError(CodeInvalidState, "", "this session is already closed")
		}

		register, err := tx.GetRegister(ctx, session.RegisterID)
		if err != nil {
			return lookupErr(err, "register")
		}
		if !user.CanOperateBranch(register.BranchID) {
			return newError(CodeForbidden, "", "you cannot close sessions of another branch")
		}

		totals, err := tx.SumMovements(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("sum movements: %w", err)
		}
		cashPayments, err := tx.SumCompletedCashPayments(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("sum cash payments: %w", err)
		}

		rec := Reconcile(session.OpeningCashBalance, cashPayments, totals.Net(), in.ClosingCashBalance)
		if !rec.CalculatedCashTotal.InRange() || !rec.CashDifference.InRange() {
			return newError(CodeInvalidAmount, "closing_cash_balance",
				fmt.Sprintf("reconciliation of %s against expected %s does not fit the amount limit of %s",
					in.ClosingCashBalance, rec.CalculatedCashTotal, money.Max))
		}
		before := sessionSnapshot(session)

		closedAt := s.now()
		session.Status = models.SessionClosed
		session.ClosedBy = &user.ID
		session.ClosedAt = &closedAt
		session.ClosingCashBalance = in.ClosingCashBalance.Ptr()
		session.CalculatedCashTotal = rec.CalculatedCashTotal.Ptr()
		session.CashDifference = rec.CashDifference.Ptr()
		session.Notes = notes

		if err := tx.CloseSession(ctx, session); err != nil {
			return fmt.Errorf("close session: %w", err)
		}
		if err := s.release(ctx, tx, register); err != nil {
			return err
		}

		if err := audit.WriteLog(ctx, tx, audit.LogOptions{
			BranchID:    &register.BranchID,
			UserID:      user.ID,
			UserName:    user.Name,
			EntityType:  audit.EntitySession,
			EntityID:    session.ID,
			Action:      models.AuditActionClose,
			Description: fmt.Sprintf("Register %q closed, difference %s", register.Name, rec.CashDifference),
			Before:      before,
			After:       sessionSnapshot(session),
		}); err != nil {
			return err
		}

		event = notify.NewSessionClosedEvent(session.ID, register.ID, session.OpenedBy, user.ID, user.Name, closedAt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cash register session closed",
		zap.Uint("session_id", session.ID),
		zap.Uint("register_id", session.RegisterID),
		zap.Uint("user_id", in.UserID),
		zap.String("calculated_cash_total", session.CalculatedCashTotal.String()),
		zap.String("cash_difference", session.CashDifference.String()),
	)

	s.publish(ctx, event)

	return session, nil
}

func (s *Service) GetSession(ctx context.Context, id uint) (*models.CashRegisterSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "session")
	}
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, f SessionFilter) ([]models.CashRegisterSession, error) {
	if err := validatePage(f.Page); err != nil {
		return nil, err
	}
	if f.Status != "" && f.Status != models.SessionOpen && f.Status != models.SessionClosed {
		return nil, newError(CodeInvalidInput, "status", "status must be OPEN or CLOSED")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sessions, err := s.repo.ListSessions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// GetSessionSummary reads the session, its movements and its cash payments
// from one snapshot, so the totals never mix data from different commits.
func (s *Service) GetSessionSummary(ctx context.Context, sessionID uint) (*SessionSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var summary *SessionSummary
	err := s.repo.Snapshot(ctx, func(tx Repository) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return lookupErr(err, "session")
		}

		totals, err := tx.SumMovements(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("sum movements: %w", err)
		}
		cashPayments, err := tx.SumCompletedCashPayments(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("sum cash payments: %w", err)
		}

		summary = &SessionSummary{
			SessionID:           session.ID,
			RegisterID:          session.RegisterID,
			Status:              session.Status,
			OpenedBy:            session.OpenedBy,
			OpenedAt:            session.OpenedAt,
			ClosedBy:            session.ClosedBy,
			ClosedAt:            session.ClosedAt,
			OpeningCashBalance:  session.OpeningCashBalance,
			CashMovementsNet:    totals.Net(),
			CashPaymentsTotal:   cashPayments,
			ExpectedCashTotal:   ExpectedCash(session.OpeningCashBalance, cashPayments, totals.Net()),
			ClosingCashBalance:  session.ClosingCashBalance,
			CalculatedCashTotal: session.CalculatedCashTotal,
			CashDifference:      session.CashDifference,
			Notes:               session.Notes,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
