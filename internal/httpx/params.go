package httpx

import (
	"strconv"

	"kasa-backend/internal/auth"
	"kasa-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ParamID reads a positive integer path parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(v), nil
}

// QueryID reads an optional positive integer query parameter.
func QueryID(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	id := uint(v)
	return &id, nil
}

// UserID is the authenticated user's id.
func UserID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(auth.CtxUserIDKey).(uint)
	if !ok || id == 0 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "user missing from token")
	}
	return id, nil
}

func Role(c *fiber.Ctx) (models.UserRole, error) {
	role, ok := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
	if !ok {
		return "", fiber.NewError(fiber.StatusForbidden, "role missing from token")
	}
	return role, nil
}

// ScopedBranch resolves the branch a listing is limited to. Branch users are
// pinned to their token's branch; super admins may pass ?branch_id= or see
// every branch.
func ScopedBranch(c *fiber.Ctx) (*uint, error) {
	role, err := Role(c)
	if err != nil {
		return nil, err
	}
	if role == models.RoleSuperAdmin {
		return QueryID(c, "branch_id")
	}

	bPtr, ok := c.Locals(auth.CtxBranchIDKey).(*uint)
	if !ok || bPtr == nil {
		return nil, fiber.NewError(fiber.StatusForbidden, "branch missing from token")
	}
	return bPtr, nil
}

// CheckBranch rejects branch users touching another branch's data.
func CheckBranch(c *fiber.Ctx, branchID uint) error {
	role, err := Role(c)
	if err != nil {
		return err
	}
	if role == models.RoleSuperAdmin {
		return nil
	}
	bPtr, ok := c.Locals(auth.CtxBranchIDKey).(*uint)
	if !ok || bPtr == nil || *bPtr != branchID {
		return fiber.NewError(fiber.StatusForbidden, "this belongs to another branch")
	}
	return nil
}

// Page reads limit/offset query parameters.
func Page(c *fiber.Ctx, defLimit int) (limit, offset int, err error) {
	limit = c.QueryInt("limit", defLimit)
	offset = c.QueryInt("offset", 0)
	if limit < 0 || offset < 0 {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "limit and offset cannot be negative")
	}
	return limit, offset, nil
}
