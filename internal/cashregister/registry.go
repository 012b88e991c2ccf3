package cashregister

import (
	"context"
	"errors"
	"fmt"

	"kasa-backend/internal/models"
)

// FindOpenSession returns the OPEN session of a register, or nil when the
// register is free.
func (s *Service) FindOpenSession(ctx context.Context, registerID uint) (*models.CashRegisterSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repo.GetRegister(ctx, registerID); err != nil {
		return nil, lookupErr(err, "register")
	}

	session, err := s.repo.FindOpenSession(ctx, registerID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return session, nil
}

// acquire takes the register for a new session. It must run inside the open
// transaction: the register row stays locked until commit, so a concurrent
// open on the same register waits and then sees the new session.
func (s *Service) acquire(ctx context.Context, tx Repository, registerID uint, user *models.User) (*models.CashRegister, error) {
	register, err := tx.LockRegister(ctx, registerID)
	if err != nil {
		return nil, lookupErr(err, "register")
	}

	if !user.CanOperateBranch(register.BranchID) {
		return nil, newError(CodeForbidden, "", "you cannot operate registers of another branch")
	}
	if !register.Active {
		return nil, newError(CodeRegisterUnavailable, "", "this register is inactive")
	}

	_, err = tx.FindOpenSession(ctx, register.ID)
	switch {
	case err == nil:
		return nil, newError(CodeRegisterUnavailable, "", "this register is already open")
	case !errors.Is(err, ErrRecordNotFound):
		return nil, fmt.Errorf("check open session: %w", err)
	}

	if err := tx.SetRegisterInUse(ctx, register.ID, true); err != nil {
		return nil, fmt.Errorf("mark register in use: %w", err)
	}
	register.InUse = true

	return register, nil
}

// release frees the register inside the close transaction.
func (s *Service) release(ctx context.Context, tx Repository, register *models.CashRegister) error {
	if err := tx.SetRegisterInUse(ctx, register.ID, false); err != nil {
		return fmt.Errorf("release register: %w", err)
	}
	register.InUse = false
	return nil
}
