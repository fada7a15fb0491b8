package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the ledger role of an account.
type Role string

const (
	RoleNormal Role = "normal"
	RoleAdmin  Role = "admin"
)

// IsValid checks if the role is a valid account role.
func (r Role) IsValid() bool {
	switch r {
	case RoleNormal, RoleAdmin:
		return true
	default:
		return false
	}
}

// Account holds the credit balance for a single user. One row per user;
// the balance column is the only shared mutable state in the system and
// is only ever changed through conditional single-column updates.
type Account struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Balance   int64     `json:"balance" gorm:"not null;default:0"`
	Role      Role      `json:"role" gorm:"type:varchar(16);not null;default:normal"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the database table name.
func (Account) TableName() string {
	return "credit_accounts"
}

// IsPrivileged returns true if the account bypasses the credit check.
func (a *Account) IsPrivileged() bool {
	return a.Role == RoleAdmin
}
