package audit

import (
	"context"
	"fmt"

	"kasa-backend/internal/auth"
	"kasa-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Lister reads audit rows back.
type Lister interface {
	ListAuditLogs(ctx context.Context, f Filter) ([]models.AuditLog, error)
}

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	BranchID    *uint              `json:"branch_id"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  string             `json:"before_data"`
	AfterData   string             `json:"after_data"`
}

func parseUintQuery(c *fiber.Ctx, key string) *uint {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var v uint
	if _, err := fmt.Sscan(raw, &v); err != nil || v == 0 {
		return nil
	}
	return &v
}

// GET /api/audit-logs?entity_type=cash_register_session&entity_id=1&branch_id=1&limit=50&offset=0
func ListAuditLogsHandler(store Lister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "role missing from token")
		}

		var f Filter

		// branch users only ever see their own branch
		if role == models.RoleSuperAdmin {
			f.BranchID = parseUintQuery(c, "branch_id")
		} else {
			bPtr, ok := c.Locals(auth.CtxBranchIDKey).(*uint)
			if !ok || bPtr == nil {
				return fiber.NewError(fiber.StatusForbidden, "branch missing from token")
			}
			f.BranchID = bPtr
		}

		f.UserID = parseUintQuery(c, "user_id")
		f.EntityType = c.Query("entity_type")
		f.EntityID = parseUintQuery(c, "entity_id")
		f.Limit = c.QueryInt("limit", 100)
		f.Offset = c.QueryInt("offset", 0)
		if f.Limit < 0 || f.Offset < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit/offset must not be negative")
		}

		logs, err := store.ListAuditLogs(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "audit logs could not be listed")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				BranchID:    l.BranchID,
				UserID:      l.UserID,
				UserName:    l.UserName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				BeforeData:  l.BeforeData,
				AfterData:   l.AfterData,
			})
		}

		return c.JSON(resp)
	}
}
