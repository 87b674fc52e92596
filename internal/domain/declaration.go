package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DeclarationType is the tax form a declaration is filed as.
type DeclarationType string

const (
	// DeclarationTypeCapitalGains is the half-yearly capital gains form.
	DeclarationTypeCapitalGains DeclarationType = "PPDG-3R"
	// DeclarationTypeIncome is the investment income form.
	DeclarationTypeIncome DeclarationType = "PP-OPO"
)

// IsValid reports whether t is a known declaration type.
func (t DeclarationType) IsValid() bool {
	return t == DeclarationTypeCapitalGains || t == DeclarationTypeIncome
}

func (t DeclarationType) filePrefix() string {
	if t == DeclarationTypeCapitalGains {
		return "ppdg3r"
	}
	return "ppopo"
}

// Income codes used on the income form.
const (
	IncomeCodeDividend = "111402000"
	IncomeCodeInterest = "111403000"
)

// IncomeCode maps a cash transaction type to its income code.
func IncomeCode(t TransactionType) string {
	if t == TransactionTypeInterest {
		return IncomeCodeInterest
	}
	return IncomeCodeDividend
}

// ProofOfActivityPlaceholder stands in for the broker statement supplied
// with a filed declaration.
const ProofOfActivityPlaceholder = "attachment://proof-of-activity"

// DeclarationStatus is a lifecycle state.
type DeclarationStatus string

const (
	DeclarationStatusDraft     DeclarationStatus = "draft"
	DeclarationStatusSubmitted DeclarationStatus = "submitted"
	DeclarationStatusPaid      DeclarationStatus = "paid"
)

// declarationTransitions lists the moves allowed out of each state. Staying
// in the same state is always accepted as a no-op. No state is terminal.
var declarationTransitions = map[DeclarationStatus][]DeclarationStatus{
	DeclarationStatusDraft:     {DeclarationStatusSubmitted, DeclarationStatusPaid},
	DeclarationStatusSubmitted: {DeclarationStatusPaid, DeclarationStatusDraft},
	DeclarationStatusPaid:      {DeclarationStatusSubmitted, DeclarationStatusDraft},
}

// IsValid reports whether s is a known status.
func (s DeclarationStatus) IsValid() bool {
	_, ok := declarationTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s DeclarationStatus) CanTransitionTo(target DeclarationStatus) bool {
	if !s.IsValid() || !target.IsValid() {
		return false
	}
	if s == target {
		return true
	}
	for _, next := range declarationTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// GainLine is one realized gain on the capital gains form.
type GainLine struct {
	Symbol       string          `json:"symbol"`
	OpenDate     time.Time       `json:"open_date"`
	CloseDate    time.Time       `json:"close_date"`
	Quantity     decimal.Decimal `json:"quantity"`
	OpenPrice    decimal.Decimal `json:"open_price"`
	ClosePrice   decimal.Decimal `json:"close_price"`
	Currency     string          `json:"currency"`
	OpenRate     decimal.Decimal `json:"open_rate"`
	CloseRate    decimal.Decimal `json:"close_rate"`
	ProceedsRSD  decimal.Decimal `json:"proceeds_rsd"`
	CostBasisRSD decimal.Decimal `json:"cost_basis_rsd"`
	GainRSD      decimal.Decimal `json:"gain_rsd"`
	TaxExempt    bool            `json:"tax_exempt,omitempty"`
}

// IncomeLine aggregates the income of one symbol paid on one date.
type IncomeLine struct {
	Date        time.Time       `json:"date"`
	Symbol      string          `json:"symbol"`
	Type        TransactionType `json:"type"`
	IncomeCode  string          `json:"income_code"`
	GrossRSD    decimal.Decimal `json:"gross_rsd"`
	WithheldRSD decimal.Decimal `json:"withheld_rsd"`
	TaxRSD      decimal.Decimal `json:"tax_rsd"`
	TaxDueRSD   decimal.Decimal `json:"tax_due_rsd"`
}

// DeclarationTotals are the rounded form totals.
type DeclarationTotals struct {
	GrossRSD         decimal.Decimal `json:"gross_rsd"`
	LossesRSD        decimal.Decimal `json:"losses_rsd"`
	TaxBaseRSD       decimal.Decimal `json:"tax_base_rsd"`
	TaxCalculatedRSD decimal.Decimal `json:"tax_calculated_rsd"`
	ForeignTaxRSD    decimal.Decimal `json:"foreign_tax_rsd"`
	TaxDueRSD        decimal.Decimal `json:"tax_due_rsd"`
}

// Attachment is a file filed alongside a declaration, unique by Name.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	SHA256      string
	Content     []byte
	AttachedAt  time.Time
}

// NewAttachment builds an attachment from raw bytes. name must already be a
// base filename.
func NewAttachment(name string, content []byte, now time.Time) Attachment {
	sum := sha256.Sum256(content)
	return Attachment{
		Name:        name,
		ContentType: http.DetectContentType(content),
		Size:        int64(len(content)),
		SHA256:      hex.EncodeToString(sum[:]),
		Content:     content,
		AttachedAt:  now,
	}
}

// Declaration is a period-scoped tax report with a lifecycle.
type Declaration struct {
	ID              string
	Type            DeclarationType
	Status          DeclarationStatus
	Period          Period
	GainLines       []GainLine
	IncomeLines     []IncomeLine
	Totals          DeclarationTotals
	Currency        string
	DueDate         time.Time
	AssessedTax     *decimal.Decimal
	ProofOfActivity string
	Attachments     map[string]Attachment
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SubmittedAt     *time.Time
	PaidAt          *time.Time
}

// ReferenceName is the stable artifact name of the declaration.
func (d *Declaration) ReferenceName() string {
	return d.Type.filePrefix() + "-" + d.Period.Label
}

// Transition moves the declaration to target. It returns false when the
// declaration already was in target.
func (d *Declaration) Transition(target DeclarationStatus, now time.Time) (bool, error) {
	if !d.Status.CanTransitionTo(target) {
		return false, &InvalidTransitionError{From: d.Status, To: target}
	}
	if d.Status == target {
		return false, nil
	}

	switch target {
	case DeclarationStatusDraft:
		d.SubmittedAt = nil
		d.PaidAt = nil
	case DeclarationStatusSubmitted:
		if d.Status == DeclarationStatusPaid {
			d.PaidAt = nil
		}
		if d.SubmittedAt == nil {
			ts := now
			d.SubmittedAt = &ts
		}
	case DeclarationStatusPaid:
		ts := now
		d.PaidAt = &ts
	}

	d.Status = target
	d.UpdatedAt = now
	return true, nil
}

// Attach stores a by name, replacing any earlier attachment with that name.
// It returns true when a previous attachment was replaced.
func (d *Declaration) Attach(a Attachment) bool {
	if d.Attachments == nil {
		d.Attachments = make(map[string]Attachment)
	}
	_, replaced := d.Attachments[a.Name]
	d.Attachments[a.Name] = a
	d.UpdatedAt = a.AttachedAt
	return replaced
}

// Detach removes the attachment called name.
func (d *Declaration) Detach(name string, now time.Time) error {
	if _, ok := d.Attachments[name]; !ok {
		return ErrAttachmentNotFound
	}
	delete(d.Attachments, name)
	d.UpdatedAt = now
	return nil
}

// AttachmentNames returns the attachment names in sorted order.
func (d *Declaration) AttachmentNames() []string {
	names := make([]string, 0, len(d.Attachments))
	for name := range d.Attachments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy.
func (d *Declaration) Clone() *Declaration {
	c := *d
	c.GainLines = append([]GainLine(nil), d.GainLines...)
	c.IncomeLines = append([]IncomeLine(nil), d.IncomeLines...)
	if d.AssessedTax != nil {
		v := *d.AssessedTax
		c.AssessedTax = &v
	}
	if d.SubmittedAt != nil {
		v := *d.SubmittedAt
		c.SubmittedAt = &v
	}
	if d.PaidAt != nil {
		v := *d.PaidAt
		c.PaidAt = &v
	}
	if d.Attachments != nil {
		c.Attachments = make(map[string]Attachment, len(d.Attachments))
		for k, v := range d.Attachments {
			c.Attachments[k] = v
		}
	}
	return &c
}

// DeclarationFilter narrows declaration listings.
type DeclarationFilter struct {
	Type   DeclarationType
	Status DeclarationStatus
	Limit  int
	Offset int
}

// Matches reports whether d passes the filter.
func (f DeclarationFilter) Matches(d *Declaration) bool {
	if f.Type != "" && f.Type != d.Type {
		return false
	}
	if f.Status != "" && f.Status != d.Status {
		return false
	}
	return true
}

// ParseDeclarationStatus parses a status name case-insensitively. Unknown
// names are returned as-is so the state machine can reject them.
func ParseDeclarationStatus(s string) DeclarationStatus {
	return DeclarationStatus(strings.ToLower(strings.TrimSpace(s)))
}
