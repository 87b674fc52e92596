package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// TransactionResponse represents a ledger record in API responses.
type TransactionResponse struct {
	ID                 string           `json:"id"`
	Source             string           `json:"source"`
	Type               string           `json:"type"`
	Date               string           `json:"date"`
	Symbol             string           `json:"symbol"`
	Description        string           `json:"description,omitempty"`
	Currency           string           `json:"currency"`
	Quantity           decimal.Decimal  `json:"quantity"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	Side               string           `json:"side,omitempty"`
	AssetClass         string           `json:"asset_class,omitempty"`
	OriginalTradeDate  string           `json:"original_trade_date,omitempty"`
	OriginalTradePrice *decimal.Decimal `json:"original_trade_price,omitempty"`
	Amount             *decimal.Decimal `json:"amount,omitempty"`
}

// TransactionFromDomain converts a domain record to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:                 t.Identity(),
		Source:             string(t.Source),
		Type:               string(t.Type),
		Date:               t.Date.Format(domain.DateLayout),
		Symbol:             t.Symbol,
		Description:        t.Description,
		Currency:           t.Currency,
		Quantity:           t.Quantity,
		Side:               string(t.Side),
		AssetClass:         string(t.AssetClass),
		OriginalTradePrice: t.OriginalTradePrice,
	}
	if t.IsTrade() {
		price := t.Price
		resp.Price = &price
	} else {
		amount := t.Amount
		resp.Amount = &amount
	}
	if t.OriginalTradeDate != nil {
		resp.OriginalTradeDate = t.OriginalTradeDate.Format(domain.DateLayout)
	}
	return resp
}

// TransactionsFromDomain converts domain records to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// WarningResponse represents a non-fatal finding.
type WarningResponse struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Symbol  string   `json:"symbol,omitempty"`
	Date    string   `json:"date,omitempty"`
	Refs    []string `json:"refs,omitempty"`
}

// WarningsFromDomain converts warnings. It never returns nil.
func WarningsFromDomain(ws []domain.Warning) []WarningResponse {
	result := make([]WarningResponse, 0, len(ws))
	for _, w := range ws {
		result = append(result, warningFromDomain(w))
	}
	return result
}

func warningFromDomain(w domain.Warning) WarningResponse {
	resp := WarningResponse{
		Kind:    string(w.Kind),
		Message: w.Message,
		Symbol:  w.Symbol,
		Refs:    w.Refs,
	}
	if !w.Date.IsZero() {
		resp.Date = w.Date.Format(domain.DateLayout)
	}
	return resp
}

// MergeReportResponse represents the outcome of a ledger upsert.
type MergeReportResponse struct {
	Identical  int               `json:"identical"`
	Updated    int               `json:"updated"`
	New        int               `json:"new"`
	Removed    int               `json:"removed"`
	Superseded int               `json:"superseded"`
	Warnings   []WarningResponse `json:"warnings"`
}

// MergeReportFromDomain converts a merge report.
func MergeReportFromDomain(r *domain.MergeReport) *MergeReportResponse {
	return &MergeReportResponse{
		Identical:  r.Identical,
		Updated:    r.Updated,
		New:        r.New,
		Removed:    r.Removed,
		Superseded: r.Superseded,
		Warnings:   WarningsFromDomain(r.Warnings),
	}
}

// RateResponse represents a resolved exchange rate.
type RateResponse struct {
	Currency string          `json:"currency"`
	Date     string          `json:"date"`
	Rate     decimal.Decimal `json:"rate"`
}

// SaveRatesResponse reports how many rates were new.
type SaveRatesResponse struct {
	Added int `json:"added"`
}

// GainEventResponse represents one realized gain.
type GainEventResponse struct {
	Symbol       string          `json:"symbol"`
	SellID       string          `json:"sell_id"`
	LotID        string          `json:"lot_id"`
	OpenDate     string          `json:"open_date"`
	CloseDate    string          `json:"close_date"`
	Quantity     decimal.Decimal `json:"quantity"`
	Currency     string          `json:"currency"`
	OpenPrice    decimal.Decimal `json:"open_price"`
	ClosePrice   decimal.Decimal `json:"close_price"`
	OpenRate     decimal.Decimal `json:"open_rate"`
	CloseRate    decimal.Decimal `json:"close_rate"`
	ProceedsRSD  decimal.Decimal `json:"proceeds_rsd"`
	CostBasisRSD decimal.Decimal `json:"cost_basis_rsd"`
	GainRSD      decimal.Decimal `json:"gain_rsd"`
	TaxExempt    bool            `json:"tax_exempt,omitempty"`
}

// UnmatchedSellResponse represents the uncovered part of a sell.
type UnmatchedSellResponse struct {
	Trade    *TransactionResponse `json:"trade"`
	Quantity decimal.Decimal      `json:"quantity"`
}

// GainsResponse represents a gains computation.
type GainsResponse struct {
	Events    []GainEventResponse     `json:"events"`
	Unmatched []UnmatchedSellResponse `json:"unmatched"`
	TotalGain decimal.Decimal         `json:"total_gain_rsd"`
	Warnings  []WarningResponse       `json:"warnings"`
}

// GainsFromDomain converts a gains result.
func GainsFromDomain(r *domain.GainsResult) *GainsResponse {
	resp := &GainsResponse{
		Events:    make([]GainEventResponse, 0, len(r.Events)),
		Unmatched: make([]UnmatchedSellResponse, 0, len(r.Unmatched)),
		TotalGain: r.TotalGain(),
		Warnings:  WarningsFromDomain(r.Warnings),
	}
	for _, e := range r.Events {
		resp.Events = append(resp.Events, GainEventResponse{
			Symbol:       e.Symbol,
			SellID:       e.SellID,
			LotID:        e.LotID,
			OpenDate:     e.OpenDate.Format(domain.DateLayout),
			CloseDate:    e.CloseDate.Format(domain.DateLayout),
			Quantity:     e.Quantity,
			Currency:     e.Currency,
			OpenPrice:    e.OpenPrice,
			ClosePrice:   e.ClosePrice,
			OpenRate:     e.OpenRate,
			CloseRate:    e.CloseRate,
			ProceedsRSD:  e.ProceedsRSD,
			CostBasisRSD: e.CostBasisRSD,
			GainRSD:      e.GainRSD,
			TaxExempt:    e.TaxExempt,
		})
	}
	for _, u := range r.Unmatched {
		resp.Unmatched = append(resp.Unmatched, UnmatchedSellResponse{
			Trade:    TransactionFromDomain(u.Trade),
			Quantity: u.Quantity,
		})
	}
	return resp
}

// ActivityResponse is one month of one symbol's activity.
type ActivityResponse struct {
	Month        string          `json:"month"`
	Symbol       string          `json:"symbol"`
	Sales        int             `json:"sales"`
	GainRSD      decimal.Decimal `json:"gain_rsd"`
	DividendsRSD decimal.Decimal `json:"dividends_rsd"`
}

// ActivityFromDomain converts an activity summary. It never returns nil.
func ActivityFromDomain(rows []domain.MonthlyActivity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ActivityResponse{
			Month:        r.Month,
			Symbol:       r.Symbol,
			Sales:        r.Sales,
			GainRSD:      r.GainRSD,
			DividendsRSD: r.DividendsRSD,
		})
	}
	return out
}

// PeriodResponse represents a declaration period.
type PeriodResponse struct {
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// AttachmentResponse describes an attachment without its content.
type AttachmentResponse struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	AttachedAt  time.Time `json:"attached_at"`
}

// AttachmentFromDomain converts an attachment.
func AttachmentFromDomain(a domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		Name:        a.Name,
		ContentType: a.ContentType,
		Size:        a.Size,
		SHA256:      a.SHA256,
		AttachedAt:  a.AttachedAt,
	}
}

// DeclarationResponse represents a declaration in API responses.
type DeclarationResponse struct {
	ID              string                   `json:"id,omitempty"`
	Type            string                   `json:"type"`
	Status          string                   `json:"status"`
	Reference       string                   `json:"reference"`
	Period          PeriodResponse           `json:"period"`
	Currency        string                   `json:"currency"`
	DueDate         string                   `json:"due_date"`
	GainLines       []domain.GainLine        `json:"gain_lines"`
	IncomeLines     []domain.IncomeLine      `json:"income_lines"`
	Totals          domain.DeclarationTotals `json:"totals"`
	AssessedTax     *decimal.Decimal         `json:"assessed_tax,omitempty"`
	ProofOfActivity string                   `json:"proof_of_activity,omitempty"`
	Attachments     []AttachmentResponse     `json:"attachments"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	SubmittedAt     *time.Time               `json:"submitted_at,omitempty"`
	PaidAt          *time.Time               `json:"paid_at,omitempty"`
}

// DeclarationFromDomain converts a declaration to response.
func DeclarationFromDomain(d *domain.Declaration) *DeclarationResponse {
	resp := &DeclarationResponse{
		ID:        d.ID,
		Type:      string(d.Type),
		Status:    string(d.Status),
		Reference: d.ReferenceName(),
		Period: PeriodResponse{
			Label: d.Period.Label,
			Start: d.Period.Start.Format(domain.DateLayout),
			End:   d.Period.End.Format(domain.DateLayout),
		},
		Currency:        d.Currency,
		DueDate:         d.DueDate.Format(domain.DateLayout),
		GainLines:       d.GainLines,
		IncomeLines:     d.IncomeLines,
		Totals:          d.Totals,
		AssessedTax:     d.AssessedTax,
		ProofOfActivity: d.ProofOfActivity,
		Attachments:     make([]AttachmentResponse, 0, len(d.Attachments)),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		SubmittedAt:     d.SubmittedAt,
		PaidAt:          d.PaidAt,
	}
	if resp.GainLines == nil {
		resp.GainLines = []domain.GainLine{}
	}
	if resp.IncomeLines == nil {
		resp.IncomeLines = []domain.IncomeLine{}
	}
	for _, name := range d.AttachmentNames() {
		resp.Attachments = append(resp.Attachments, AttachmentFromDomain(d.Attachments[name]))
	}
	return resp
}

// DeclarationsFromDomain converts declarations to responses.
func DeclarationsFromDomain(ds []*domain.Declaration) []*DeclarationResponse {
	result := make([]*DeclarationResponse, len(ds))
	for i, d := range ds {
		result[i] = DeclarationFromDomain(d)
	}
	return result
}

// BuildResponse represents a declaration preview.
type BuildResponse struct {
	Declarations []*DeclarationResponse `json:"declarations"`
	Warnings     []WarningResponse      `json:"warnings"`
}

// BuildFromUseCase converts a build result.
func BuildFromUseCase(r *usecase.BuildResult) *BuildResponse {
	return &BuildResponse{
		Declarations: DeclarationsFromDomain(r.Declarations),
		Warnings:     WarningsFromDomain(r.Warnings),
	}
}

// CreateResponse reports persisted and skipped declarations.
type CreateResponse struct {
	Created  []*DeclarationResponse `json:"created"`
	Skipped  []*DeclarationResponse `json:"skipped"`
	Warnings []WarningResponse      `json:"warnings"`
}

// CreateFromUseCase converts a create result.
func CreateFromUseCase(r *usecase.CreateResult) *CreateResponse {
	return &CreateResponse{
		Created:  DeclarationsFromDomain(r.Created),
		Skipped:  DeclarationsFromDomain(r.Skipped),
		Warnings: WarningsFromDomain(r.Warnings),
	}
}

// AttachResponse reports a stored attachment.
type AttachResponse struct {
	Declaration *DeclarationResponse `json:"declaration"`
	Attachment  AttachmentResponse   `json:"attachment"`
	Replaced    bool                 `json:"replaced"`
	Notice      *WarningResponse     `json:"notice,omitempty"`
}

// AttachFromUseCase converts an attach result.
func AttachFromUseCase(r *usecase.AttachResult) *AttachResponse {
	resp := &AttachResponse{
		Declaration: DeclarationFromDomain(r.Declaration),
		Attachment:  AttachmentFromDomain(r.Attachment),
		Replaced:    r.Replaced,
	}
	if r.Notice != nil {
		n := warningFromDomain(*r.Notice)
		resp.Notice = &n
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
