package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Ledger errors
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidDateRange    = errors.New("invalid date range")

	// Rate errors
	ErrMissingRate  = errors.New("missing exchange rate")
	ErrRateNotFound = errors.New("exchange rate not found")
	ErrInvalidRate  = errors.New("exchange rate must be positive")

	// Declaration errors
	ErrDeclarationNotFound = errors.New("declaration not found")
	ErrInvalidDeclaration  = errors.New("invalid declaration")
	ErrDeclarationExists   = errors.New("declaration already exists for period")
	ErrInvalidTransition   = errors.New("invalid declaration transition")
	ErrAttachmentNotFound  = errors.New("attachment not found")
	ErrInvalidAttachment   = errors.New("invalid attachment")
	ErrDeclarationIsDraft  = errors.New("declaration has not been submitted")
)

// MissingRateError reports that no rate exists at or before Date.
type MissingRateError struct {
	Currency string
	Date     time.Time
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("missing exchange rate for %s on or before %s", e.Currency, e.Date.Format(DateLayout))
}

// Is lets errors.Is match ErrMissingRate.
func (e *MissingRateError) Is(target error) bool {
	return target == ErrMissingRate
}

// InvalidTransitionError reports a rejected lifecycle transition.
type InvalidTransitionError struct {
	From DeclarationStatus
	To   DeclarationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move declaration from %q to %q", e.From, e.To)
}

// Is lets errors.Is match ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
