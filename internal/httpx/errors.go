package httpx

import (
	"errors"

	"kasa-backend/internal/cashregister"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(code cashregister.ErrorCode) int {
	switch code {
	case cashregister.CodeNotFound:
		return fiber.StatusNotFound
	case cashregister.CodeRegisterUnavailable, cashregister.CodeInvalidState:
		return fiber.StatusConflict
	case cashregister.CodeInvalidAmount, cashregister.CodeInvalidInput:
		return fiber.StatusUnprocessableEntity
	case cashregister.CodeForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders *fiber.Error and domain errors as {"error": ...}.
// Anything else is logged and reported as a 500 without details.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		var de cashregister.DomainError
		if errors.As(err, &de) {
			body := fiber.Map{"error": de.Message, "code": de.Code}
			if de.Field != "" {
				body["field"] = de.Field
			}
			return c.Status(StatusFor(de.Code)).JSON(body)
		}

		logger.Error("unexpected error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unexpected server error",
		})
	}
}
