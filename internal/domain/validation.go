package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Rhymond/go-money"
)

// Validation constants
const (
	MaxSymbolLength      = 32
	MaxAttachmentSize    = 20 << 20 // 20MB
	MaxFilenameLength    = 255
	DefaultPageSize      = 50
	MaxPageSize          = 1000
	MaxBatchTransactions = 50000
)

// ErrInvalidCurrency is returned for codes outside ISO 4217.
var ErrInvalidCurrency = errors.New("invalid currency code")

// ValidateCurrency validates currency code against the ISO 4217 table.
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if currency == "" || money.GetCurrency(currency) == nil {
		return fmt.Errorf("%w: %q is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateSymbol validates a ticker symbol.
func ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: symbol cannot be empty", ErrInvalidTransaction)
	}
	if len(symbol) > MaxSymbolLength {
		return fmt.Errorf("%w: symbol exceeds %d characters", ErrInvalidTransaction, MaxSymbolLength)
	}
	return nil
}

// AttachmentName reduces a client supplied path to its base filename.
func AttachmentName(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	base := filepath.Base(name)

	if base == "" || base == "." || base == "/" || base == ".." {
		return "", fmt.Errorf("%w: empty filename", ErrInvalidAttachment)
	}
	if len(base) > MaxFilenameLength {
		return "", fmt.Errorf("%w: filename exceeds %d characters", ErrInvalidAttachment, MaxFilenameLength)
	}

	return base, nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
