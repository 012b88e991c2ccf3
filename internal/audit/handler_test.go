package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"kasa-backend/internal/auth"
	"kasa-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	got  Filter
	logs []models.AuditLog
	err  error
}

func (f *fakeLister) ListAuditLogs(_ context.Context, filter Filter) ([]models.AuditLog, error) {
	f.got = filter
	return f.logs, f.err
}

func (f *fakeLister) CreateAuditLog(_ context.Context, l *models.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, *l)
	return nil
}

func serve(t *testing.T, store Lister, role models.UserRole, branchID *uint, path string) *httptest.ResponseRecorder {
	t.Helper()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserRoleKey, role)
		c.Locals(auth.CtxBranchIDKey, branchID)
		return c.Next()
	})
	app.Get("/audit-logs", ListAuditLogsHandler(store))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	rec := httptest.NewRecorder()
	rec.Code = resp.StatusCode
	_, err = rec.Body.ReadFrom(resp.Body)
	require.NoError(t, err)
	return rec
}

func TestListAuditLogsHandler_BranchScope(t *testing.T) {
	branch := uint(2)
	store := &fakeLister{logs: []models.AuditLog{{
		ID:          1,
		CreatedAt:   time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC),
		BranchID:    &branch,
		UserID:      5,
		UserName:    "Ayse",
		EntityType:  EntitySession,
		EntityID:    9,
		Action:      models.AuditActionClose,
		Description: "closed",
		BeforeData:  "null",
		AfterData:   `{"id":9}`,
	}}}

	rec := serve(t, store, models.RoleBranchAdmin, &branch, "/audit-logs?branch_id=7&entity_type=cash_register_session&entity_id=9&limit=10")
	require.Equal(t, fiber.StatusOK, rec.Code)

	require.NotNil(t, store.got.BranchID)
	assert.Equal(t, branch, *store.got.BranchID, "branch users cannot widen the scope")
	assert.Equal(t, EntitySession, store.got.EntityType)
	require.NotNil(t, store.got.EntityID)
	assert.Equal(t, uint(9), *store.got.EntityID)
	assert.Equal(t, 10, store.got.Limit)

	var resp []AuditLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "2026-03-10 18:30:00", resp[0].CreatedAt)
	assert.Equal(t, models.AuditActionClose, resp[0].Action)
}

func TestListAuditLogsHandler_SuperAdmin(t *testing.T) {
	store := &fakeLister{}

	rec := serve(t, store, models.RoleSuperAdmin, nil, "/audit-logs")
	require.Equal(t, fiber.StatusOK, rec.Code)
	assert.Nil(t, store.got.BranchID)
	assert.Equal(t, 100, store.got.Limit)
	assert.JSONEq(t, `[]`, rec.Body.String())

	serve(t, store, models.RoleSuperAdmin, nil, "/audit-logs?branch_id=3")
	require.NotNil(t, store.got.BranchID)
	assert.Equal(t, uint(3), *store.got.BranchID)
}

func TestListAuditLogsHandler_Rejections(t *testing.T) {
	store := &fakeLister{}

	rec := serve(t, store, models.RoleCashier, nil, "/audit-logs")
	assert.Equal(t, fiber.StatusForbidden, rec.Code)

	rec = serve(t, store, models.RoleSuperAdmin, nil, "/audit-logs?limit=-1")
	assert.Equal(t, fiber.StatusBadRequest, rec.Code)

	store.err = errors.New("db down")
	rec = serve(t, store, models.RoleSuperAdmin, nil, "/audit-logs")
	assert.Equal(t, fiber.StatusInternalServerError, rec.Code)
}

func TestWriteLog(t *testing.T) {
	store := &fakeLister{}
	branch := uint(1)

	err := WriteLog(context.Background(), store, LogOptions{
		BranchID:   &branch,
		UserID:     5,
		UserName:   "Ayse",
		EntityType: EntityMovement,
		EntityID:   3,
		Action:     models.AuditActionCreate,
		After:      map[string]any{"amount": "12.50"},
	})
	require.NoError(t, err)
	require.Len(t, store.logs, 1)
	assert.Equal(t, "null", store.logs[0].BeforeData)
	assert.JSONEq(t, `{"amount":"12.50"}`, store.logs[0].AfterData)

	store.err = errors.New("insert failed")
	err = WriteLog(context.Background(), store, LogOptions{Action: models.AuditActionCreate})
	require.ErrorIs(t, err, store.err)

	err = WriteLog(context.Background(), store, LogOptions{After: func() {}})
	require.Error(t, err)
}
