package decorate

import "errors"

var (
	// ErrInvalidInput indicates a missing image, style, or description.
	ErrInvalidInput = errors.New("invalid decoration input")
	// ErrQuotaExceeded indicates the caller has no credits left.
	ErrQuotaExceeded = errors.New("credit quota exceeded")
	// ErrLedger indicates a ledger read or write failed.
	ErrLedger = errors.New("ledger unavailable")
	// ErrSynthesisFailed indicates the provider call produced no usable
	// image for a reason other than a policy block. Any debit has been
	// rolled back when this is returned.
	ErrSynthesisFailed = errors.New("image synthesis failed")
)
