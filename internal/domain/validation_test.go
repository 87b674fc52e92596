package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateCurrency(t *testing.T) {
	t.Parallel()

	if err := ValidateCurrency("usd"); err != nil {
		t.Fatalf("expected uppercase conversion to succeed, got %v", err)
	}

	if err := ValidateCurrency("RSD"); err != nil {
		t.Fatalf("expected RSD to be valid, got %v", err)
	}

	if err := ValidateCurrency("XYZ"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestAttachmentName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "statement.pdf", want: "statement.pdf"},
		{input: "/home/user/docs/statement.pdf", want: "statement.pdf"},
		{input: `C:\Users\me\statement.pdf`, want: "statement.pdf"},
		{input: "   ", wantErr: true},
		{input: strings.Repeat("a", MaxFilenameLength+1), wantErr: true},
	}

	for _, tt := range tests {
		got, err := AttachmentName(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidAttachment) {
				t.Fatalf("AttachmentName(%q): expected ErrInvalidAttachment, got %v", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("AttachmentName(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount string
		want   string
	}{
		{"1.005", "1.01"},
		{"1.004", "1"},
		{"-1.005", "-1.01"},
		{"2.5", "2.5"},
	}

	for _, tt := range tests {
		got := RoundHalfUp(decimal.RequireFromString(tt.amount), "RSD")
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("RoundHalfUp(%s) = %s, want %s", tt.amount, got, tt.want)
		}
	}

	if got := FormatAmount(decimal.RequireFromString("12.3"), "RSD"); got != "12.30" {
		t.Fatalf("expected 12.30, got %s", got)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset := ValidatePagination(0, -5)
	if limit != DefaultPageSize || offset != 0 {
		t.Fatalf("expected defaults, got limit=%d offset=%d", limit, offset)
	}

	limit, _ = ValidatePagination(MaxPageSize+1, 0)
	if limit != MaxPageSize {
		t.Fatalf("expected limit capped at %d, got %d", MaxPageSize, limit)
	}
}
