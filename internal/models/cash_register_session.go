package models

import (
	"time"

	"kasa-backend/internal/money"
)

type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionClosed SessionStatus = "CLOSED"
)

// CashRegisterSession is one working shift on one register. Closing fields
// stay nil until the single close write; a CLOSED row is never modified.
type CashRegisterSession struct {
	ID                  uint          `gorm:"primaryKey" json:"id"`
	RegisterID          uint          `gorm:"index;not null" json:"register_id"`
	Register            *CashRegister `json:"-"`
	OpenedBy            uint          `gorm:"not null" json:"opened_by"`
	OpenedAt            time.Time     `gorm:"not null" json:"opened_at"`
	ClosedBy            *uint         `json:"closed_by"`
	ClosedAt            *time.Time    `gorm:"index" json:"closed_at"`
	Status              SessionStatus `gorm:"size:10;not null;index" json:"status"`
	OpeningCashBalance  money.Money   `gorm:"type:numeric(12,2);not null" json:"opening_cash_balance"`
	ClosingCashBalance  *money.Money  `gorm:"type:numeric(12,2)" json:"closing_cash_balance"`
	CalculatedCashTotal *money.Money  `gorm:"type:numeric(12,2)" json:"calculated_cash_total"`
	CashDifference      *money.Money  `gorm:"type:numeric(12,2)" json:"cash_difference"`
	Notes               string        `gorm:"type:text" json:"notes"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`

	Movements []SessionCashMovement `gorm:"foreignKey:SessionID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (s *CashRegisterSession) IsOpen() bool {
	return s.Status == SessionOpen
}
