package cashregister

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"

	"go.uber.org/zap"
)

type MovementInput struct {
	SessionID   uint
	UserID      uint
	Type        models.MovementType
	Amount      money.Money
	Description string
}

func (in MovementInput) validate() (string, error) {
	if !in.Type.Valid() {
		return "", newError(CodeInvalidInput, "type", "type must be INFLOW or OUTFLOW")
	}
	if !in.Amount.IsPositive() {
		return "", newError(CodeInvalidAmount, "amount", "amount must be greater than zero")
	}
	if !in.Amount.InRange() {
		return "", tooLarge("amount")
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return "", newError(CodeInvalidInput, "description", "description is required")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return "", newError(CodeInvalidInput, "description", fmt.Sprintf("description cannot be longer than %d characters", maxDescriptionLen))
	}
	return desc, nil
}

// RecordCashMovement appends a manual inflow or outflow to an open session.
// The session row itself is not touched; its running total is derived.
func (s *Service) RecordCashMovement(ctx context.Context, in MovementInput) (*models.SessionCashMovement, error) {
	desc, err := in.validate()
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var movement *models.SessionCashMovement
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		user, err := tx.GetUser(ctx, in.UserID)
		if err != nil {
			return lookupErr(err, "user")
		}

		session, err := tx.LockSession(ctx, in.SessionID, LockShare)
		if err != nil {
			return lookupErr(err, "session")
		}
		if !session.IsOpen() {
			return newError(CodeInvalidState, "", "cash movements can only be recorded on an open session")
		}

		register, err := tx.GetRegister(ctx, session.RegisterID)
		if err != nil {
			return lookupErr(err, "register")
		}
		if !user.CanOperateBranch(register.BranchID) {
			return newError(CodeForbidden, "", "you cannot record movements for another branch")
		}

		delta := in.Amount
		if in.Type == models.MovementOutflow {
			delta = delta.Neg()
		}
		if err := expectedFits(ctx, tx, session, delta, "amount"); err != nil {
			return err
		}

		movement = &models.SessionCashMovement{
			SessionID:   session.ID,
			Type:        in.Type,
			Amount:      in.Amount,
			Description: desc,
			RecordedBy:  user.ID,
		}
		if err := tx.CreateMovement(ctx, movement); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		return audit.WriteLog(ctx, tx, audit.LogOptions{
			BranchID:    &register.BranchID,
			UserID:      user.ID,
			UserName:    user.Name,
			EntityType:  audit.EntityMovement,
			EntityID:    movement.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s %s: %s", movement.Type, movement.Amount, movement.Description),
			After:       movement,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cash movement recorded",
		zap.Uint("session_id", movement.SessionID),
		zap.Uint("movement_id", movement.ID),
		zap.String("type", string(movement.Type)),
		zap.String("amount", movement.Amount.String()),
	)

	return movement, nil
}

// ListMovements returns a session's movements oldest first. A zero
// page.Limit reads the whole ledger.
func (s *Service) ListMovements(ctx context.Context, sessionID uint, page Page) ([]models.SessionCashMovement, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, lookupErr(err, "session")
	}

	movements, err := s.repo.ListMovements(ctx, sessionID, page)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

// CashMovementsNet is the net manual adjustment of a session.
func (s *Service) CashMovementsNet(ctx context.Context, sessionID uint) (money.Money, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return money.Zero, lookupErr(err, "session")
	}

	totals, err := s.repo.SumMovements(ctx, sessionID)
	if err != nil {
		return money.Zero, fmt.Errorf("sum movements: %w", err)
	}
	return totals.Net(), nil
}
