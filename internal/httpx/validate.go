// Package httpx holds the request plumbing shared by the Fiber handlers:
// body parsing with struct validation, path/query helpers, token locals and
// the error handler that renders domain errors.
package httpx

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/money"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field names in errors are the json
// tag names so they line up with the request body.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ParseBody decodes the JSON body into dst and validates it. Malformed
// amounts surface as InvalidAmount, tag violations as InvalidInput.
func ParseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		if errors.Is(err, money.ErrInvalid) || errors.Is(err, money.ErrPrecision) {
			return cashregister.DomainError{
				Code:    cashregister.CodeInvalidAmount,
				Message: "amounts must be decimal numbers with at most two fraction digits",
			}
		}
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return ValidateStruct(dst)
}

func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	fe := verrs[0]
	return cashregister.DomainError{
		Code:    cashregister.CodeInvalidInput,
		Field:   fe.Field(),
		Message: describe(fe),
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " cannot be longer than " + fe.Param() + " characters"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "email":
		return fe.Field() + " must be a valid email"
	default:
		return fe.Field() + " is invalid"
	}
}
