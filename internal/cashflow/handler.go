package cashflow

import (
	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/httpx"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"

	"github.com/gofiber/fiber/v2"
)

// Balances are pointers so that a missing or null amount is rejected
// instead of decoding to zero.
type OpenSessionRequest struct {
	RegisterID         uint         `json:"register_id" validate:"required"`
	OpeningCashBalance *money.Money `json:"opening_cash_balance" validate:"required"`
}

type CloseSessionRequest struct {
	ClosingCashBalance *money.Money `json:"closing_cash_balance" validate:"required"`
	Notes              string       `json:"notes" validate:"max=2000"`
}

type CreateMovementRequest struct {
	Type        models.MovementType `json:"type" validate:"required,oneof=INFLOW OUTFLOW"`
	Amount      money.Money         `json:"amount"`
	Description string              `json:"description"`
}

type MovementListResponse struct {
	SessionID uint                         `json:"session_id"`
	Limit     int                          `json:"limit"`
	Offset    int                          `json:"offset"`
	Items     []models.SessionCashMovement `json:"items"`
}

// authorizeSession loads a session and checks that the caller's branch owns
// its register.
func authorizeSession(c *fiber.Ctx, svc *cashregister.Service, sessionID uint) (*models.CashRegisterSession, error) {
	session, err := svc.GetSession(c.UserContext(), sessionID)
	if err != nil {
		return nil, err
	}
	register, err := svc.GetRegister(c.UserContext(), session.RegisterID)
	if err != nil {
		return nil, err
	}
	if err := httpx.CheckBranch(c, register.BranchID); err != nil {
		return nil, err
	}
	return session, nil
}

// POST /api/sessions
func OpenSessionHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := httpx.UserID(c)
		if err != nil {
			return err
		}

		var body OpenSessionRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		session, err := svc.OpenSession(c.UserContext(), cashregister.OpenInput{
			RegisterID:         body.RegisterID,
			UserID:             userID,
			OpeningCashBalance: *body.OpeningCashBalance,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	}
}

// GET /api/sessions?register_id=1&status=OPEN&branch_id=1&limit=50&offset=0
func ListSessionsHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := httpx.ScopedBranch(c)
		if err != nil {
			return err
		}
		registerID, err := httpx.QueryID(c, "register_id")
		if err != nil {
			return err
		}
		limit, offset, err := httpx.Page(c, 50)
		if err != nil {
			return err
		}

		sessions, err := svc.ListSessions(c.UserContext(), cashregister.SessionFilter{
			BranchID:   branchID,
			RegisterID: registerID,
			Status:     models.SessionStatus(c.Query("status")),
			Page:       cashregister.Page{Limit: limit, Offset: offset},
		})
		if err != nil {
			return err
		}
		return c.JSON(sessions)
	}
}

// GET /api/sessions/:id/summary
func SessionSummaryHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		if _, err := authorizeSession(c, svc, id); err != nil {
			return err
		}

		summary, err := svc.GetSessionSummary(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}

// POST /api/sessions/:id/close
func CloseSessionHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := httpx.UserID(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body CloseSessionRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		session, err := svc.CloseSession(c.UserContext(), cashregister.CloseInput{
			SessionID:          id,
			UserID:             userID,
			ClosingCashBalance: *body.ClosingCashBalance,
			Notes:              body.Notes,
		})
		if err != nil {
			return err
		}
		return c.JSON(session)
	}
}

// POST /api/sessions/:id/movements
func CreateMovementHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := httpx.UserID(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body CreateMovementRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		movement, err := svc.RecordCashMovement(c.UserContext(), cashregister.MovementInput{
			SessionID:   id,
			UserID:      userID,
			Type:        body.Type,
			Amount:      body.Amount,
			Description: body.Description,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(movement)
	}
}

// GET /api/sessions/:id/movements?limit=100&offset=0
// limit=0 returns the whole ledger.
func ListMovementsHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		limit, offset, err := httpx.Page(c, 100)
		if err != nil {
			return err
		}
		if _, err := authorizeSession(c, svc, id); err != nil {
			return err
		}

		items, err := svc.ListMovements(c.UserContext(), id, cashregister.Page{Limit: limit, Offset: offset})
		if err != nil {
			return err
		}
		return c.JSON(MovementListResponse{SessionID: id, Limit: limit, Offset: offset, Items: items})
	}
}
