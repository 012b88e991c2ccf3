package models

import (
	"time"

	"kasa-backend/internal/money"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentProcessing, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// CanTransitionTo allows PROCESSING -> COMPLETED|FAILED only.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentProcessing && (next == PaymentCompleted || next == PaymentFailed)
}

// Payment is recorded by the sales side. SessionID is nil for channels that
// do not go through a register.
type Payment struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	SessionID *uint         `gorm:"index" json:"session_id"`
	Amount    money.Money   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method    PaymentMethod `gorm:"size:10;not null" json:"method"`
	Status    PaymentStatus `gorm:"size:12;not null;index" json:"status"`
	Reference string        `gorm:"size:100" json:"reference"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
