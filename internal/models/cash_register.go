package models

import "time"

// CashRegister is a physical till. InUse mirrors "an OPEN session exists" and
// is only flipped inside the open/close transaction.
type CashRegister struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BranchID  uint      `gorm:"index;not null;uniqueIndex:idx_register_branch_name" json:"branch_id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_register_branch_name" json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	InUse     bool      `gorm:"not null;default:false" json:"in_use"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
