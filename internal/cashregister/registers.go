package cashregister

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/models"

	"go.uber.org/zap"
)

type RegisterInput struct {
	BranchID uint
	Name     string
	UserID   uint
}

func (s *Service) CreateRegister(ctx context.Context, in RegisterInput) (*models.CashRegister, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, newError(CodeInvalidInput, "name", "register name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return nil, newError(CodeInvalidInput, "name", "register name cannot be longer than 100 characters")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var register *models.CashRegister
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		user, err := tx.GetUser(ctx, in.UserID)
		if err != nil {
			return lookupErr(err, "user")
		}
		if user.Role == models.RoleCashier {
			return newError(CodeForbidden, "", "cashiers cannot create registers")
		}

		branch, err := tx.GetBranch(ctx, in.BranchID)
		if err != nil {
			return lookupErr(err, "branch")
		}
		if !user.CanOperateBranch(branch.ID) {
			return newError(CodeForbidden, "", "you cannot create registers for another branch")
		}

		register = &models.CashRegister{
			BranchID: branch.ID,
			Name:     name,
			Active:   true,
		}
		if err := tx.CreateRegister(ctx, register); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return newError(CodeInvalidInput, "name", "a register with this name already exists in the branch")
			}
			return fmt.Errorf("create register: %w", err)
		}

		return audit.WriteLog(ctx, tx, audit.LogOptions{
			BranchID:    &branch.ID,
			UserID:      user.ID,
			UserName:    user.Name,
			EntityType:  audit.EntityRegister,
			EntityID:    register.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Register %q created in %s", register.Name, branch.Name),
			After:       register,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cash register created",
		zap.Uint("register_id", register.ID),
		zap.Uint("branch_id", register.BranchID),
	)
	return register, nil
}

// SetRegisterActive enables or disables a register. A register with an
// OPEN session cannot be disabled.
func (s *Service) SetRegisterActive(ctx context.Context, registerID, userID uint, active bool) (*models.CashRegister, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var register *models.CashRegister
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return lookupErr(err, "user")
		}
		if user.Role == models.RoleCashier {
			return newError(CodeForbidden, "", "cashiers cannot change registers")
		}

		register, err = tx.LockRegister(ctx, registerID)
		if err != nil {
			return lookupErr(err, "register")
		}
		if !user.CanOperateBranch(register.BranchID) {
			return newError(CodeForbidden, "", "you cannot change registers of another branch")
		}
		if register.Active == active {
			return nil
		}
		if !active && register.InUse {
			return newError(CodeRegisterUnavailable, "", "close the open session before disabling this register")
		}

		before := *register
		if err := tx.SetRegisterActive(ctx, register.ID, active); err != nil {
			return fmt.Errorf("set register active: %w", err)
		}
		register.Active = active

		return audit.WriteLog(ctx, tx, audit.LogOptions{
			BranchID:    &register.BranchID,
			UserID:      user.ID,
			UserName:    user.Name,
			EntityType:  audit.EntityRegister,
			EntityID:    register.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Register %q active=%t", register.Name, active),
			Before:      before,
			After:       register,
		})
	})
	if err != nil {
		return nil, err
	}
	return register, nil
}

// ListRegisters lists every register, or those of one branch.
func (s *Service) ListRegisters(ctx context.Context, branchID *uint) ([]models.CashRegister, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	registers, err := s.repo.ListRegisters(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list registers: %w", err)
	}
	return registers, nil
}

func (s *Service) GetRegister(ctx context.Context, id uint) (*models.CashRegister, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	register, err := s.repo.GetRegister(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "register")
	}
	return register, nil
}

// CanWatchSession reports whether a user may follow a session's live events:
// its opener, anyone who recorded a movement on it, and admins of its branch.
func (s *Service) CanWatchSession(ctx context.Context, sessionID, userID uint) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return false, lookupErr(err, "user")
	}
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return false, lookupErr(err, "session")
	}
	register, err := s.repo.GetRegister(ctx, session.RegisterID)
	if err != nil {
		return false, lookupErr(err, "register")
	}

	if !user.CanOperateBranch(register.BranchID) {
		return false, nil
	}
	if user.Role != models.RoleCashier || session.OpenedBy == user.ID {
		return true, nil
	}

	movements, err := s.repo.ListMovements(ctx, session.ID, Page{})
	if err != nil {
		return false, fmt.Errorf("list movements: %w", err)
	}
	for _, m := range movements {
		if m.RecordedBy == user.ID {
			return true, nil
		}
	}
	return false, nil
}
