package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"kasa-backend/internal/models"
)

const (
	EntityRegister = "cash_register"
	EntitySession  = "cash_register_session"
	EntityMovement = "session_cash_movement"
	EntityPayment  = "payment"
)

// Writer persists audit rows. Passing a transactional writer makes the log
// entry commit or roll back together with the change it describes.
type Writer interface {
	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
}

// Filter narrows an audit listing. Limit 0 means no limit.
type Filter struct {
	BranchID   *uint
	UserID     *uint
	EntityType string
	EntityID   *uint
	Limit      int
	Offset     int
}

type LogOptions struct {
	BranchID    *uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func WriteLog(ctx context.Context, w Writer, opts LogOptions) error {
	// jsonb columns need a JSON literal, not an empty string
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		b, err := json.Marshal(opts.Before)
		if err != nil {
			return fmt.Errorf("audit before snapshot: %w", err)
		}
		beforeStr = string(b)
	}
	if opts.After != nil {
		b, err := json.Marshal(opts.After)
		if err != nil {
			return fmt.Errorf("audit after snapshot: %w", err)
		}
		afterStr = string(b)
	}

	entry := models.AuditLog{
		BranchID:    opts.BranchID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := w.CreateAuditLog(ctx, &entry); err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}

	return nil
}
