package admin

import (
	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/httpx"
	"kasa-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateRegisterRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	// branch admins always create in their own branch
	BranchID *uint `json:"branch_id"`
}

type SetRegisterActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// resolveBranchID picks the target branch: the token's for branch users, the
// body's for super admins.
func resolveBranchID(c *fiber.Ctx, bodyBranchID *uint) (uint, error) {
	role, err := httpx.Role(c)
	if err != nil {
		return 0, err
	}
	if role != models.RoleSuperAdmin {
		b, err := httpx.ScopedBranch(c)
		if err != nil {
			return 0, err
		}
		return *b, nil
	}
	if bodyBranchID == nil || *bodyBranchID == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id is required")
	}
	return *bodyBranchID, nil
}

// POST /api/registers
func CreateRegisterHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := httpx.UserID(c)
		if err != nil {
			return err
		}

		var body CreateRegisterRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		branchID, err := resolveBranchID(c, body.BranchID)
		if err != nil {
			return err
		}

		register, err := svc.CreateRegister(c.UserContext(), cashregister.RegisterInput{
			BranchID: branchID,
			Name:     body.Name,
			UserID:   userID,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(register)
	}
}

// GET /api/registers?branch_id=1
func ListRegistersHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := httpx.ScopedBranch(c)
		if err != nil {
			return err
		}

		registers, err := svc.ListRegisters(c.UserContext(), branchID)
		if err != nil {
			return err
		}
		return c.JSON(registers)
	}
}

// PUT /api/registers/:id/active
func SetRegisterActiveHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := httpx.UserID(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body SetRegisterActiveRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		register, err := svc.SetRegisterActive(c.UserContext(), id, userID, *body.Active)
		if err != nil {
			return err
		}
		return c.JSON(register)
	}
}

// GET /api/registers/:id/open-session
// Responds 200 with {"session": null} when the register is free.
func OpenSessionOfRegisterHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		register, err := svc.GetRegister(c.UserContext(), id)
		if err != nil {
			return err
		}
		if err := httpx.CheckBranch(c, register.BranchID); err != nil {
			return err
		}

		session, err := svc.FindOpenSession(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"session": session})
	}
}
