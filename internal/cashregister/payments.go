package cashregister

import (
	"context"
	"fmt"
	"strings"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"

	"go.uber.org/zap"
)

type PaymentInput struct {
	SessionID *uint
	UserID    uint
	Amount    money.Money
	Method    models.PaymentMethod
	Status    models.PaymentStatus
	Reference string
}

type PaymentStatusInput struct {
	PaymentID uint
	UserID    uint
	Status    models.PaymentStatus
}

// guardOpenSession share-locks the payment's session and rejects it unless
// OPEN. It returns the session and the branch of its register.
func guardOpenSession(ctx context.Context, tx Repository, sessionID uint, user *models.User) (*models.CashRegisterSession, uint, error) {
	session, err := tx.LockSession(ctx, sessionID, LockShare)
	if err != nil {
		return nil, 0, lookupErr(err, "session")
	}
	if !session.IsOpen() {
		return nil, 0, newError(CodeInvalidState, "", "the session of this payment is already closed")
	}

	register, err := tx.GetRegister(ctx, session.RegisterID)
	if err != nil {
		return nil, 0, lookupErr(err, "register")
	}
	if !user.CanOperateBranch(register.BranchID) {
		return nil, 0, newError(CodeForbidden, "", "you cannot record payments for another branch")
	}
	return session, register.BranchID, nil
}

// countsAsCash reports whether a payment adds to its session's drawer.
func countsAsCash(method models.PaymentMethod, status models.PaymentStatus) bool {
	return method == models.PaymentCash && status == models.PaymentCompleted
}

// RecordPayment stores a payment. Payments attributed to a session are only
// accepted while that session is open.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (*models.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, newError(CodeInvalidAmount, "amount", "amount must be greater than zero")
	}
	if !in.Amount.InRange() {
		return nil, tooLarge("amount")
	}
	if !in.Method.Valid() {
		return nil, newError(CodeInvalidInput, "method", "method must be CASH, CARD or TRANSFER")
	}
	if in.Status == "" {
		in.Status = models.PaymentProcessing
	}
	if !in.Status.Valid() {
		return nil, newError(CodeInvalidInput, "status", "status must be PROCESSING, COMPLETED or FAILED")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var payment *models.Payment
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		user, err := tx.GetUser(ctx, in.UserID)
		if err != nil {
			return lookupErr(err, "user")
		}

		var branchID *uint
		if in.SessionID != nil {
			session, b, err := guardOpenSession(ctx, tx, *in.SessionID, user)
			if err != nil {
				return err
			}
			if countsAsCash(in.Method, in.Status) {
				if err := expectedFits(ctx, tx, session, in.Amount, "amount"); err != nil {
					return err
				}
			}
			branchID = &b
		}

		payment = &models.Payment{
			SessionID: in.SessionID,
			Amount:    in.Amount,
			Method:    in.Method,
			Status:    in.Status,
			Reference: strings.TrimSpace(in.Reference),
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		return audit.WriteLog(ctx, tx, audit.LogOptions{
			BranchID:    branchID,
			UserID:      user.ID,
			UserName:    user.Name,
			EntityType:  audit.EntityPayment,
			EntityID:    payment.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s payment %s (%s)", payment.Method, payment.Amount, payment.Status),
			After:       payment,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.Uint("payment_id", payment.ID),
		zap.String("method", string(payment.Method)),
		zap.String("status", string(payment.Status)),
		zap.String("amount", payment.Amount.String()),
	)

	return payment, nil
}

// UpdatePaymentStatus settles a PROCESSING payment. The status of a payment
// whose session is closed is frozen, so closed totals never change.
func (s *Service) UpdatePaymentStatus(ctx context.Context, in PaymentStatusInput) (*models.Payment, error) {
	if !in.Status.Valid() {
		return nil, newError(CodeInvalidInput, "status", "status must be PROCESSING, COMPLETED or FAILED")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var payment *models.Payment
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		user, err := tx.GetUser(ctx, in.UserID)
		if err != nil {
			return lookupErr(err, "user")
		}

		payment, err = tx.LockPayment(ctx, in.PaymentID)
		if err != nil {
			return lookupErr(err, "payment")
		}
		if !payment.Status.CanTransitionTo(in.Status) {
			return newError(CodeInvalidState, "status",
				fmt.Sprintf("payment cannot move from %s to %s", payment.Status, in.Status))
		}

		var branchID *uint
		if payment.SessionID != nil {
			session, b, err := guardOpenSession(ctx, tx, *payment.SessionID, user)
			if err != nil {
				return err
			}
			if countsAsCash(payment.Method, in.Status) {
				if err := expectedFits(ctx, tx, session, payment.Amount, "status"); err != nil {
					return err
				}
			}
			branchID = &b
		}

		before := *payment
		if err := tx.UpdatePaymentStatus(ctx, payment.ID, in.Status); err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		payment.Status = in.Status

		return audit.WriteLog(ctx, tx, audit.LogOptions{
			BranchID:    branchID,
			UserID:      user.ID,
			UserName:    user.Name,
			EntityType:  audit.EntityPayment,
			EntityID:    payment.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("payment %s -> %s", before.Status, payment.Status),
			Before:      before,
			After:       payment,
		})
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// SumCashPayments totals the COMPLETED CASH payments of a session.
func (s *Service) SumCashPayments(ctx context.Context, sessionID uint) (money.Money, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return money.Zero, lookupErr(err, "session")
	}

	total, err := s.repo.SumCompletedCashPayments(ctx, sessionID)
	if err != nil {
		return money.Zero, fmt.Errorf("sum cash payments: %w", err)
	}
	return total, nil
}
