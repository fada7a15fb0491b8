package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the ledger contract the rest of the application depends on.
// Debit and credit are deliberately asymmetric: the debit is conditional on
// the current balance, the rollback credit is an unconditional increment by
// one. Neither operation ever writes an absolute balance value, so concurrent
// requests against the same account cannot clobber each other.
type Repository interface {
	// Get returns the account for the user, or ErrAccountNotFound.
	Get(ctx context.Context, userID uuid.UUID) (*Account, error)
	// DebitOne decrements the balance by 1 iff the current balance >= 1.
	// Returns ErrInsufficientCredits when no row matched.
	DebitOne(ctx context.Context, userID uuid.UUID) error
	// CreditOne increments the balance by 1. Used to roll back a debit.
	CreditOne(ctx context.Context, userID uuid.UUID) error
	// Grant adds amount credits to the account, creating it if needed.
	Grant(ctx context.Context, userID uuid.UUID, amount int64) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed ledger repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Get(ctx context.Context, userID uuid.UUID) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

func (r *gormRepository) DebitOne(ctx context.Context, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("user_id = ? AND balance >= 1", userID).
		UpdateColumn("balance", gorm.Expr("balance - 1"))
	if res.Error != nil {
		return fmt.Errorf("debit account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

func (r *gormRepository) CreditOne(ctx context.Context, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("user_id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + 1"))
	if res.Error != nil {
		return fmt.Errorf("credit account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *gormRepository) Grant(ctx context.Context, userID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance":    gorm.Expr("credit_accounts.balance + ?", amount),
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(&Account{UserID: userID, Balance: amount, Role: RoleNormal}).Error
	if err != nil {
		return fmt.Errorf("grant credits: %w", err)
	}
	return nil
}

// Compile-time check
var _ Repository = (*gormRepository)(nil)
