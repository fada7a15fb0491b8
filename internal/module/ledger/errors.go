package ledger

import "errors"

var (
	// ErrAccountNotFound indicates no credit account exists for the user.
	ErrAccountNotFound = errors.New("credit account not found")
	// ErrInsufficientCredits indicates the conditional debit matched no row.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrInvalidAmount indicates a non-positive grant amount.
	ErrInvalidAmount = errors.New("invalid credit amount")
)
