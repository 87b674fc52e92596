package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iho/taxledger/internal/adapter/http/dto"
)

// transactionRow is one record of a batch file. Numbers stay strings so an
// empty cell reads as zero and the API sees the exact decimal text.
type transactionRow struct {
	ID                 string `csv:"id"                   yaml:"id"`
	Date               string `csv:"date"                 yaml:"date"`
	Type               string `csv:"type"                 yaml:"type"`
	Symbol             string `csv:"symbol"               yaml:"symbol"`
	Description        string `csv:"description"          yaml:"description"`
	Currency           string `csv:"currency"             yaml:"currency"`
	Side               string `csv:"side"                 yaml:"side"`
	Quantity           string `csv:"quantity"             yaml:"quantity"`
	Price              string `csv:"price"                yaml:"price"`
	Amount             string `csv:"amount"               yaml:"amount"`
	AssetClass         string `csv:"asset_class"          yaml:"asset_class"`
	OriginalTradeDate  string `csv:"original_trade_date"  yaml:"original_trade_date"`
	OriginalTradePrice string `csv:"original_trade_price" yaml:"original_trade_price"`
}

type transactionFile struct {
	Transactions []transactionRow `yaml:"transactions"`
}

type rateRow struct {
	Date     string `yaml:"date"`
	Currency string `yaml:"currency"`
	Rate     string `yaml:"rate"`
}

type rateFile struct {
	Rates []rateRow `yaml:"rates"`
}

// readCSVTransactions reads a broker export with a header row.
func readCSVTransactions(path string) ([]dto.TransactionRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*transactionRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]dto.TransactionRequest, 0, len(rows))
	for i, row := range rows {
		req, err := row.toRequest()
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		out = append(out, req)
	}
	return out, nil
}

// readYAMLTransactions reads a feed file with a top-level transactions list.
func readYAMLTransactions(path string) ([]dto.TransactionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file transactionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]dto.TransactionRequest, 0, len(file.Transactions))
	for i := range file.Transactions {
		req, err := file.Transactions[i].toRequest()
		if err != nil {
			return nil, fmt.Errorf("%s transaction %d: %w", path, i, err)
		}
		out = append(out, req)
	}
	return out, nil
}

// readTransactions picks the parser by file extension.
func readTransactions(path string) ([]dto.TransactionRequest, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return readYAMLTransactions(path)
	}
	return readCSVTransactions(path)
}

func readRates(path string) ([]dto.RateItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file rateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]dto.RateItem, 0, len(file.Rates))
	for i, r := range file.Rates {
		rate, err := parseDecimal(r.Rate)
		if err != nil {
			return nil, fmt.Errorf("%s rate %d: %w", path, i, err)
		}
		out = append(out, dto.RateItem{
			Date:     strings.TrimSpace(r.Date),
			Currency: strings.ToUpper(strings.TrimSpace(r.Currency)),
			Rate:     rate,
		})
	}
	return out, nil
}

func (r *transactionRow) toRequest() (dto.TransactionRequest, error) {
	req := dto.TransactionRequest{
		ID:          strings.TrimSpace(r.ID),
		Date:        strings.TrimSpace(r.Date),
		Type:        strings.ToUpper(strings.TrimSpace(r.Type)),
		Symbol:      strings.TrimSpace(r.Symbol),
		Description: strings.TrimSpace(r.Description),
		Currency:    strings.ToUpper(strings.TrimSpace(r.Currency)),
		Side:        strings.ToUpper(strings.TrimSpace(r.Side)),
		AssetClass:  strings.ToUpper(strings.TrimSpace(r.AssetClass)),
	}

	var err error
	if req.Quantity, err = parseDecimal(r.Quantity); err != nil {
		return req, fmt.Errorf("quantity: %w", err)
	}
	if req.Price, err = parseDecimal(r.Price); err != nil {
		return req, fmt.Errorf("price: %w", err)
	}
	if req.Amount, err = parseDecimal(r.Amount); err != nil {
		return req, fmt.Errorf("amount: %w", err)
	}

	if d := strings.TrimSpace(r.OriginalTradeDate); d != "" {
		req.OriginalTradeDate = &d
	}
	if p := strings.TrimSpace(r.OriginalTradePrice); p != "" {
		price, err := decimal.NewFromString(p)
		if err != nil {
			return req, fmt.Errorf("original_trade_price: %w", err)
		}
		req.OriginalTradePrice = &price
	}
	return req, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
