package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"kasa-backend/internal/config"
	"kasa-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newApp() *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Use(JWTMiddleware(cfg))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":   c.Locals(CtxUserIDKey),
			"role":      c.Locals(CtxUserRoleKey),
			"branch_id": c.Locals(CtxBranchIDKey),
		})
	})
	app.Get("/admin", RequireRole(models.RoleSuperAdmin, models.RoleBranchAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func call(t *testing.T, app *fiber.App, path, header string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := GenerateToken(testSecret, u)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestJWTMiddleware(t *testing.T) {
	app := newApp()
	branch := uint(3)

	cashier := &models.User{ID: 7, Email: "ayse@example.com", Role: models.RoleCashier, BranchID: &branch}
	orphan := &models.User{ID: 8, Email: "x@example.com", Role: models.RoleCashier}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTCustomClaims{
		UserID: 7, Role: models.RoleCashier, BranchID: &branch,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	expiredStr, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	forged, err := GenerateToken("another-secret-another-secret-xx", cashier)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTCustomClaims{
		UserID: 7, Role: models.RoleCashier, BranchID: &branch,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	foreignStr, err := foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: token(t, cashier), want: fiber.StatusOK},
		{name: "missing header", header: "", want: fiber.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: fiber.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expiredStr, want: fiber.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + forged, want: fiber.StatusUnauthorized},
		{name: "foreign issuer", header: "Bearer " + foreignStr, want: fiber.StatusUnauthorized},
		{name: "branch user without branch", header: token(t, orphan), want: fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, app, "/me", tt.header))
		})
	}
}

func TestRequireRole(t *testing.T) {
	app := newApp()
	branch := uint(1)

	assert.Equal(t, fiber.StatusNoContent, call(t, app, "/admin", token(t, &models.User{ID: 1, Role: models.RoleSuperAdmin})))
	assert.Equal(t, fiber.StatusNoContent, call(t, app, "/admin", token(t, &models.User{ID: 2, Role: models.RoleBranchAdmin, BranchID: &branch})))
	assert.Equal(t, fiber.StatusForbidden, call(t, app, "/admin", token(t, &models.User{ID: 3, Role: models.RoleCashier, BranchID: &branch})))
}
