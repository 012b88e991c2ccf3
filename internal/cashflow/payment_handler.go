package cashflow

import (
	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/httpx"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"

	"github.com/gofiber/fiber/v2"
)

type CreatePaymentRequest struct {
	SessionID *uint                `json:"session_id"`
	Amount    money.Money          `json:"amount"`
	Method    models.PaymentMethod `json:"method" validate:"required,oneof=CASH CARD TRANSFER"`
	Status    models.PaymentStatus `json:"status" validate:"omitempty,oneof=PROCESSING COMPLETED FAILED"`
	Reference string               `json:"reference" validate:"max=100"`
}

type UpdatePaymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" validate:"required,oneof=PROCESSING COMPLETED FAILED"`
}

// POST /api/payments
func CreatePaymentHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := httpx.UserID(c)
		if err != nil {
			return err
		}

		var body CreatePaymentRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		payment, err := svc.RecordPayment(c.UserContext(), cashregister.PaymentInput{
			SessionID: body.SessionID,
			UserID:    userID,
			Amount:    body.Amount,
			Method:    body.Method,
			Status:    body.Status,
			Reference: body.Reference,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(payment)
	}
}

// PUT /api/payments/:id/status
func UpdatePaymentStatusHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := httpx.UserID(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body UpdatePaymentStatusRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		payment, err := svc.UpdatePaymentStatus(c.UserContext(), cashregister.PaymentStatusInput{
			PaymentID: id,
			UserID:    userID,
			Status:    body.Status,
		})
		if err != nil {
			return err
		}
		return c.JSON(payment)
	}
}
