package models

import "time"

type UserRole string

const (
	RoleSuperAdmin  UserRole = "super_admin"
	RoleBranchAdmin UserRole = "branch_admin"
	RoleCashier     UserRole = "cashier"
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	BranchID     *uint
	Branch       *Branch
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanOperateBranch reports whether the user may act on registers of branchID.
// Super admins are not bound to a branch.
func (u *User) CanOperateBranch(branchID uint) bool {
	if u.Role == RoleSuperAdmin {
		return true
	}
	return u.BranchID != nil && *u.BranchID == branchID
}
