package domain

// DocumentLine is one row of a declaration artifact with amounts formatted
// to the reporting currency's minor unit.
type DocumentLine struct {
	Symbol     string            `json:"symbol"`
	Date       string            `json:"date"`
	OpenDate   string            `json:"open_date,omitempty"`
	Quantity   string            `json:"quantity,omitempty"`
	IncomeCode string            `json:"income_code,omitempty"`
	TaxExempt  bool              `json:"tax_exempt,omitempty"`
	Amounts    map[string]string `json:"amounts"`
}

// Document is the record set an exporter serializes for one declaration.
type Document struct {
	Reference       string            `json:"reference"`
	Type            DeclarationType   `json:"type"`
	Status          DeclarationStatus `json:"status"`
	PeriodStart     string            `json:"period_start"`
	PeriodEnd       string            `json:"period_end"`
	DueDate         string            `json:"due_date"`
	Currency        string            `json:"currency"`
	Lines           []DocumentLine    `json:"lines"`
	Totals          map[string]string `json:"totals"`
	ProofOfActivity string            `json:"proof_of_activity"`
	Attachments     []string          `json:"attachments"`
}

// Document renders the declaration into its output record set.
func (d *Declaration) Document() Document {
	cur := d.Currency
	if cur == "" {
		cur = DefaultReportingCurrency
	}

	doc := Document{
		Reference:       d.ReferenceName(),
		Type:            d.Type,
		Status:          d.Status,
		PeriodStart:     d.Period.Start.Format(DateLayout),
		PeriodEnd:       d.Period.End.Format(DateLayout),
		DueDate:         d.DueDate.Format(DateLayout),
		Currency:        cur,
		Lines:           make([]DocumentLine, 0, len(d.GainLines)+len(d.IncomeLines)),
		ProofOfActivity: d.ProofOfActivity,
		Attachments:     d.AttachmentNames(),
	}
	if doc.ProofOfActivity == "" {
		doc.ProofOfActivity = ProofOfActivityPlaceholder
	}

	for _, l := range d.GainLines {
		doc.Lines = append(doc.Lines, DocumentLine{
			Symbol:    l.Symbol,
			Date:      l.CloseDate.Format(DateLayout),
			OpenDate:  l.OpenDate.Format(DateLayout),
			Quantity:  l.Quantity.String(),
			TaxExempt: l.TaxExempt,
			Amounts: map[string]string{
				"proceeds":   FormatAmount(l.ProceedsRSD, cur),
				"cost_basis": FormatAmount(l.CostBasisRSD, cur),
				"gain":       FormatAmount(l.GainRSD, cur),
			},
		})
	}

	for _, l := range d.IncomeLines {
		doc.Lines = append(doc.Lines, DocumentLine{
			Symbol:     l.Symbol,
			Date:       l.Date.Format(DateLayout),
			IncomeCode: l.IncomeCode,
			Amounts: map[string]string{
				"gross":    FormatAmount(l.GrossRSD, cur),
				"withheld": FormatAmount(l.WithheldRSD, cur),
				"tax":      FormatAmount(l.TaxRSD, cur),
				"tax_due":  FormatAmount(l.TaxDueRSD, cur),
			},
		})
	}

	doc.Totals = map[string]string{
		"gross":          FormatAmount(d.Totals.GrossRSD, cur),
		"losses":         FormatAmount(d.Totals.LossesRSD, cur),
		"tax_base":       FormatAmount(d.Totals.TaxBaseRSD, cur),
		"tax_calculated": FormatAmount(d.Totals.TaxCalculatedRSD, cur),
		"foreign_tax":    FormatAmount(d.Totals.ForeignTaxRSD, cur),
		"tax_due":        FormatAmount(d.Totals.TaxDueRSD, cur),
	}
	if d.AssessedTax != nil {
		doc.Totals["assessed_tax"] = FormatAmount(*d.AssessedTax, cur)
	}

	return doc
}
