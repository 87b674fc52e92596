package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iho/taxledger/internal/adapter/http/dto"
)

type recordedRequest struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Body        []byte
}

// newTestAPI serves status and body for every request and records what the
// CLI sent.
func newTestAPI(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			ContentType: r.Header.Get("Content-Type"),
			Body:        data,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--url", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	if err := printJSON(&out, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if out.String() != expected {
		t.Fatalf("unexpected json output:\n%s", out.String())
	}
}

func TestImportPostsImportedBatch(t *testing.T) {
	csv := "date,type,symbol,currency,side,quantity,price\n" +
		"2024-01-05,trade,AAPL,usd,buy,10,150.25\n" +
		"2024-03-01,TRADE,AAPL,USD,SELL,4,170\n"
	file := writeFile(t, "export.csv", csv)

	srv, requests := newTestAPI(t, http.StatusOK, `{"identical":0,"updated":0,"new":2,"removed":0,"superseded":0,"warnings":[]}`)

	out, err := runCLI(t, srv, "import", "--file", file)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "new: 2") {
		t.Fatalf("expected merge summary, got %q", out)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if req.Method != http.MethodPost || req.Path != "/api/v1/ledger/transactions" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}

	var body dto.UpsertRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Source != "imported" || len(body.Transactions) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	first := body.Transactions[0]
	if first.Type != "TRADE" || first.Side != "BUY" || first.Currency != "USD" || first.Price.String() != "150.25" {
		t.Fatalf("unexpected first record: %+v", first)
	}
}

func TestSyncPostsAuthoritativeYAML(t *testing.T) {
	feed := `transactions:
  - id: U123-1
    date: 2024-02-01
    type: DIVIDEND
    symbol: MSFT
    currency: USD
    amount: 12.5
  - id: U123-2
    date: 2024-03-01
    type: TRADE
    symbol: AAPL
    currency: USD
    side: SELL
    quantity: 4
    price: 170
    original_trade_date: 2023-01-10
    original_trade_price: "120"
`
	file := writeFile(t, "feed.yaml", feed)

	srv, requests := newTestAPI(t, http.StatusOK, `{"new":2,"warnings":[]}`)

	if _, err := runCLI(t, srv, "sync", "--file", file); err != nil {
		t.Fatalf("sync: %v", err)
	}

	var body dto.UpsertRequest
	if err := json.Unmarshal((*requests)[0].Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Source != "authoritative" || len(body.Transactions) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Transactions[0].Amount.String() != "12.5" || body.Transactions[0].Date != "2024-02-01" {
		t.Fatalf("unexpected dividend: %+v", body.Transactions[0])
	}
	sell := body.Transactions[1]
	if sell.OriginalTradeDate == nil || *sell.OriginalTradeDate != "2023-01-10" {
		t.Fatalf("expected linkage date, got %v", sell.OriginalTradeDate)
	}
	if sell.OriginalTradePrice == nil || sell.OriginalTradePrice.String() != "120" {
		t.Fatalf("expected linkage price, got %v", sell.OriginalTradePrice)
	}
}

func TestRatesLoad(t *testing.T) {
	file := writeFile(t, "rates.yaml", "rates:\n  - {date: 2024-01-05, currency: usd, rate: 108.5}\n  - {date: 2024-01-05, currency: EUR, rate: \"117.2\"}\n")

	srv, requests := newTestAPI(t, http.StatusOK, `{"added":1}`)

	out, err := runCLI(t, srv, "rates", "load", "--file", file)
	if err != nil {
		t.Fatalf("rates load: %v", err)
	}
	if !strings.Contains(out, "loaded 2 rates, 1 new") {
		t.Fatalf("unexpected output %q", out)
	}

	var body dto.SaveRatesRequest
	if err := json.Unmarshal((*requests)[0].Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Rates) != 2 || body.Rates[0].Currency != "USD" || body.Rates[0].Rate.String() != "108.5" {
		t.Fatalf("unexpected rates: %+v", body.Rates)
	}
}

func TestGainsSendsRange(t *testing.T) {
	srv, requests := newTestAPI(t, http.StatusOK, `{"events":[],"unmatched":[],"total_gain_rsd":"0","warnings":[]}`)

	out, err := runCLI(t, srv, "gains", "--from", "2024-01-01", "--to", "2024-06-30", "--symbol", "AAPL")
	if err != nil {
		t.Fatalf("gains: %v", err)
	}
	if !strings.Contains(out, "total gain: 0.00") {
		t.Fatalf("unexpected output %q", out)
	}

	req := (*requests)[0]
	if req.Path != "/api/v1/gains" || req.Query != "from=2024-01-01&symbol=AAPL&to=2024-06-30" {
		t.Fatalf("unexpected request %s?%s", req.Path, req.Query)
	}
}

func TestActivityPrintsDisplayAmounts(t *testing.T) {
	srv, requests := newTestAPI(t, http.StatusOK,
		`[{"month":"2024-03","symbol":"AAPL","sales":2,"gain_rsd":"1234.5","dividends_rsd":"0"}]`)

	out, err := runCLI(t, srv, "activity", "--from", "2024-01-01", "--to", "2024-06-30")
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	for _, want := range []string{"2024-03", "AAPL", "Дин.1,234.50", "Дин.0.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}

	req := (*requests)[0]
	if req.Path != "/api/v1/gains/activity" || req.Query != "from=2024-01-01&to=2024-06-30" {
		t.Fatalf("unexpected request %s?%s", req.Path, req.Query)
	}
}

func TestDeclarationsTransition(t *testing.T) {
	srv, requests := newTestAPI(t, http.StatusOK, `{"id":"01HZ","reference":"ppdg3r-2024-H1","status":"submitted"}`)

	out, err := runCLI(t, srv, "declarations", "transition", "01HZ", "submitted")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if strings.TrimSpace(out) != "ppdg3r-2024-H1 is now submitted" {
		t.Fatalf("unexpected output %q", out)
	}

	req := (*requests)[0]
	if req.Path != "/api/v1/declarations/01HZ/transition" || string(req.Body) != `{"status":"submitted"}` {
		t.Fatalf("unexpected request %s %s", req.Path, req.Body)
	}
}

func TestDeclarationsBuildDefaultsToServerRange(t *testing.T) {
	srv, requests := newTestAPI(t, http.StatusCreated, `{"created":[],"skipped":[],"warnings":[]}`)

	out, err := runCLI(t, srv, "declarations", "build")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(out, "created 0, skipped 0 existing") {
		t.Fatalf("unexpected output %q", out)
	}

	req := (*requests)[0]
	if req.Path != "/api/v1/declarations/build" || strings.TrimSpace(string(req.Body)) != `{}` {
		t.Fatalf("unexpected request %s %s", req.Path, req.Body)
	}
}

func TestDeclarationsBuildNeedsBothBounds(t *testing.T) {
	srv, requests := newTestAPI(t, http.StatusCreated, `{}`)

	if _, err := runCLI(t, srv, "declarations", "build", "--from", "2024-01-01"); err == nil {
		t.Fatal("expected an error for a single bound")
	}
	if len(*requests) != 0 {
		t.Fatalf("expected no request, got %d", len(*requests))
	}
}

func TestDeclarationsAttachUsesBaseName(t *testing.T) {
	file := writeFile(t, "receipt.pdf", "%PDF-1.4")
	srv, requests := newTestAPI(t, http.StatusOK, `{"attachment":{"name":"receipt.pdf","size":8,"sha256":"abc"},"replaced":true,"notice":{"kind":"DUPLICATE_ATTACHMENT","message":"replaced receipt.pdf"}}`)

	out, err := runCLI(t, srv, "declarations", "attach", "01HZ", file)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !strings.Contains(out, "notice: replaced receipt.pdf") {
		t.Fatalf("expected duplicate notice, got %q", out)
	}

	req := (*requests)[0]
	if req.Method != http.MethodPut || req.Path != "/api/v1/declarations/01HZ/attachments/receipt.pdf" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.ContentType != "application/octet-stream" || string(req.Body) != "%PDF-1.4" {
		t.Fatalf("unexpected upload %q %q", req.ContentType, req.Body)
	}
}

func TestAPIErrorIsReturned(t *testing.T) {
	srv, _ := newTestAPI(t, http.StatusConflict, `{"error":"invalid transition","message":"draft -> archived"}`)

	_, err := runCLI(t, srv, "declarations", "transition", "01HZ", "archived")
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr, ok := err.(*apiError)
	if !ok {
		t.Fatalf("expected *apiError, got %T", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "invalid transition" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestReadCSVTransactionsRejectsBadNumber(t *testing.T) {
	file := writeFile(t, "bad.csv", "date,type,symbol,currency,quantity\n2024-01-05,TRADE,AAPL,USD,ten\n")

	if _, err := readCSVTransactions(file); err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("expected row error, got %v", err)
	}
}
