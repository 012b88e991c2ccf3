package models

import (
	"time"

	"kasa-backend/internal/money"
)

type MovementType string

const (
	MovementInflow  MovementType = "INFLOW"  // cash put into the drawer
	MovementOutflow MovementType = "OUTFLOW" // cash taken out of the drawer
)

func (t MovementType) Valid() bool {
	return t == MovementInflow || t == MovementOutflow
}

// SessionCashMovement is a manual cash adjustment inside a session. Rows are
// never updated or deleted; corrections are new offsetting movements.
type SessionCashMovement struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	SessionID   uint         `gorm:"index;not null" json:"session_id"`
	Type        MovementType `gorm:"size:10;not null" json:"type"`
	Amount      money.Money  `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description string       `gorm:"size:255;not null" json:"description"`
	RecordedBy  uint         `gorm:"not null" json:"recorded_by"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
}
