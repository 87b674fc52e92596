package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
)

type clientFunc func() *apiClient

// reportingCurrency is the currency every RSD-suffixed response field uses.
const reportingCurrency = "RSD"

func importCmd(client clientFunc) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a broker export as imported records",
		RunE: func(cmd *cobra.Command, args []string) error {
			txns, err := readTransactions(file)
			if err != nil {
				return err
			}
			return upsert(cmd, client(), domain.SourceImported, txns)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV or YAML file with transactions")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func syncCmd(client clientFunc) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge an authoritative feed into the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			txns, err := readTransactions(file)
			if err != nil {
				return err
			}
			return upsert(cmd, client(), domain.SourceAuthoritative, txns)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML or CSV file with authoritative transactions")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func reconcileCmd(client clientFunc) *cobra.Command {
	var importedFile, authoritativeFile string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Merge an imported and an authoritative batch in one step",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.ReconcileRequest{}
			var err error
			if importedFile != "" {
				if req.Imported, err = readTransactions(importedFile); err != nil {
					return err
				}
			}
			if authoritativeFile != "" {
				if req.Authoritative, err = readTransactions(authoritativeFile); err != nil {
					return err
				}
			}

			var report dto.MergeReportResponse
			if err := client().doJSON(cmd.Context(), http.MethodPost, "/ledger/reconcile", req, &report); err != nil {
				return err
			}
			return printMergeReport(cmd.OutOrStdout(), &report)
		},
	}
	cmd.Flags().StringVar(&importedFile, "imported", "", "file with imported transactions")
	cmd.Flags().StringVar(&authoritativeFile, "authoritative", "", "file with authoritative transactions")
	return cmd
}

func upsert(cmd *cobra.Command, c *apiClient, source domain.Source, txns []dto.TransactionRequest) error {
	if len(txns) == 0 {
		return fmt.Errorf("no transactions to merge")
	}

	req := dto.UpsertRequest{Source: string(source), Transactions: txns}
	var report dto.MergeReportResponse
	if err := c.doJSON(cmd.Context(), http.MethodPost, "/ledger/transactions", req, &report); err != nil {
		return err
	}
	return printMergeReport(cmd.OutOrStdout(), &report)
}

func printMergeReport(out io.Writer, r *dto.MergeReportResponse) error {
	fmt.Fprintf(out, "new: %d  updated: %d  identical: %d  removed: %d  superseded: %d\n",
		r.New, r.Updated, r.Identical, r.Removed, r.Superseded)
	printWarnings(out, r.Warnings)
	return nil
}

func printWarnings(out io.Writer, warnings []dto.WarningResponse) {
	for _, w := range warnings {
		fmt.Fprintf(out, "warning [%s] %s\n", w.Kind, w.Message)
	}
}

func ledgerCmd(client clientFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	var from, to, symbol string
	var types []string
	list := &cobra.Command{
		Use:   "list",
		Short: "List ledger records",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := rangeQuery(from, to)
			if symbol != "" {
				q.Set("symbol", symbol)
			}
			for _, t := range types {
				q.Add("type", t)
			}

			var txns []dto.TransactionResponse
			if err := client().doJSON(cmd.Context(), http.MethodGet, "/ledger/transactions?"+q.Encode(), nil, &txns); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tTYPE\tSYMBOL\tSIDE\tQTY\tPRICE/AMOUNT\tCCY\tID")
			for _, t := range txns {
				value := ""
				switch {
				case t.Price != nil:
					value = t.Price.String()
				case t.Amount != nil:
					value = t.Amount.String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					t.Date, t.Type, t.Symbol, t.Side, t.Quantity, value, t.Currency, truncate(t.ID, 24))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	list.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	list.Flags().StringVar(&symbol, "symbol", "", "symbol filter")
	list.Flags().StringSliceVar(&types, "type", nil, "record types")

	consistency := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result map[string]bool
			if err := client().doJSON(cmd.Context(), http.MethodGet, "/ledger/consistency", nil, &result); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Consistency check PASSED")
			return nil
		},
	}

	cmd.AddCommand(list, consistency)
	return cmd
}

func ratesCmd(client clientFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Exchange rate operations",
	}

	var file string
	load := &cobra.Command{
		Use:   "load",
		Short: "Load an exchange rate table",
		RunE: func(cmd *cobra.Command, args []string) error {
			rates, err := readRates(file)
			if err != nil {
				return err
			}

			var resp dto.SaveRatesResponse
			req := dto.SaveRatesRequest{Rates: rates}
			if err := client().doJSON(cmd.Context(), http.MethodPost, "/rates", req, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rates, %d new\n", len(rates), resp.Added)
			return nil
		},
	}
	load.Flags().StringVar(&file, "file", "", "YAML rate table")
	_ = load.MarkFlagRequired("file")

	get := &cobra.Command{
		Use:   "get CURRENCY DATE",
		Short: "Show the rate used for a currency on a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rate dto.RateResponse
			path := fmt.Sprintf("/rates/%s/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
			if err := client().doJSON(cmd.Context(), http.MethodGet, path, nil, &rate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", rate.Currency, rate.Date, rate.Rate)
			return nil
		},
	}

	cmd.AddCommand(load, get)
	return cmd
}

func gainsCmd(client clientFunc) *cobra.Command {
	var from, to, symbol string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "gains",
		Short: "Compute realized capital gains",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := rangeQuery(from, to)
			if symbol != "" {
				q.Set("symbol", symbol)
			}

			var gains dto.GainsResponse
			if err := client().doJSON(cmd.Context(), http.MethodGet, "/gains?"+q.Encode(), nil, &gains); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, gains)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CLOSE\tOPEN\tSYMBOL\tQTY\tPROCEEDS\tCOST\tGAIN\tEXEMPT")
			for _, e := range gains.Events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
					e.CloseDate, e.OpenDate, e.Symbol, e.Quantity,
					e.ProceedsRSD.StringFixed(2), e.CostBasisRSD.StringFixed(2), e.GainRSD.StringFixed(2), e.TaxExempt)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, u := range gains.Unmatched {
				if u.Trade != nil {
					fmt.Fprintf(out, "unmatched sell %s %s x%s\n", u.Trade.Date, u.Trade.Symbol, u.Quantity)
				}
			}
			fmt.Fprintf(out, "total gain: %s\n", gains.TotalGain.StringFixed(2))
			printWarnings(out, gains.Warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first close date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last close date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol filter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response")
	return cmd
}

func activityCmd(client clientFunc) *cobra.Command {
	var from, to, symbol string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Summarize sales and dividends per month and symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := rangeQuery(from, to)
			if symbol != "" {
				q.Set("symbol", symbol)
			}

			var rows []dto.ActivityResponse
			if err := client().doJSON(cmd.Context(), http.MethodGet, "/gains/activity?"+q.Encode(), nil, &rows); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, rows)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "MONTH\tSYMBOL\tSALES\tGAIN\tDIVIDENDS\t")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t\n",
					r.Month, r.Symbol, r.Sales,
					domain.DisplayAmount(r.GainRSD, reportingCurrency),
					domain.DisplayAmount(r.DividendsRSD, reportingCurrency))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol filter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response")
	return cmd
}

func declarationsCmd(client clientFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "declarations",
		Aliases: []string{"decl"},
		Short:   "Tax declaration operations",
	}

	cmd.AddCommand(
		declarationsBuildCmd(client),
		declarationsListCmd(client),
		declarationsShowCmd(client),
		declarationsTransitionCmd(client),
		declarationsAssessCmd(client),
		declarationsAttachCmd(client),
		declarationsDetachCmd(client),
	)
	return cmd
}

func declarationsBuildCmd(client clientFunc) *cobra.Command {
	var from, to string
	var preview bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build draft declarations for a date range or the last complete half-year",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if preview {
				var resp dto.BuildResponse
				path := "/declarations/preview?" + rangeQuery(from, to).Encode()
				if err := client().doJSON(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
					return err
				}
				printDeclarations(out, resp.Declarations)
				printWarnings(out, resp.Warnings)
				return nil
			}

			var resp dto.CreateResponse
			req := dto.BuildDeclarationsRequest{From: from, To: to}
			if err := client().doJSON(cmd.Context(), http.MethodPost, "/declarations/build", req, &resp); err != nil {
				return err
			}
			fmt.Fprintf(out, "created %d, skipped %d existing\n", len(resp.Created), len(resp.Skipped))
			printDeclarations(out, resp.Created)
			printWarnings(out, resp.Warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD), defaults to the last complete half-year")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD), defaults to the last complete half-year")
	cmd.Flags().BoolVar(&preview, "preview", false, "show the declarations without storing them")
	cmd.MarkFlagsRequiredTogether("from", "to")
	return cmd
}

func declarationsListCmd(client clientFunc) *cobra.Command {
	var typ, status string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declarations",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if typ != "" {
				q.Set("type", typ)
			}
			if status != "" {
				q.Set("status", status)
			}
			q.Set("limit", fmt.Sprint(limit))
			q.Set("offset", fmt.Sprint(offset))

			var resp []*dto.DeclarationResponse
			if err := client().doJSON(cmd.Context(), http.MethodGet, "/declarations?"+q.Encode(), nil, &resp); err != nil {
				return err
			}
			printDeclarations(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "declaration type (PPDG-3R or PP-OPO)")
	cmd.Flags().StringVar(&status, "status", "", "status (draft, submitted, paid)")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultPageSize, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func declarationsShowCmd(client clientFunc) *cobra.Command {
	var document bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a declaration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/declarations/" + url.PathEscape(args[0])
			if document {
				var doc domain.Document
				if err := client().doJSON(cmd.Context(), http.MethodGet, path+"/document", nil, &doc); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			}

			var d dto.DeclarationResponse
			if err := client().doJSON(cmd.Context(), http.MethodGet, path, nil, &d); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().BoolVar(&document, "document", false, "show the filing document instead")
	return cmd
}

func declarationsTransitionCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "transition ID STATUS",
		Short: "Move a declaration to draft, submitted or paid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var d dto.DeclarationResponse
			path := "/declarations/" + url.PathEscape(args[0]) + "/transition"
			req := dto.TransitionRequest{Status: args[1]}
			if err := client().doJSON(cmd.Context(), http.MethodPost, path, req, &d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", d.Reference, d.Status)
			return nil
		},
	}
}

func declarationsAssessCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "assess ID AMOUNT",
		Short: "Record the tax assessed by the tax office",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}

			var d dto.DeclarationResponse
			path := "/declarations/" + url.PathEscape(args[0]) + "/assessed-tax"
			if err := client().doJSON(cmd.Context(), http.MethodPut, path, dto.AssessedTaxRequest{Amount: amount}, &d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s assessed at %s %s\n", d.Reference, amount.StringFixed(2), d.Currency)
			return nil
		},
	}
}

func declarationsAttachCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "attach ID FILE",
		Short: "Attach a file to a declaration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			name := filepath.Base(args[1])
			path := "/declarations/" + url.PathEscape(args[0]) + "/attachments/" + url.PathEscape(name)

			var resp dto.AttachResponse
			if err := client().do(cmd.Context(), http.MethodPut, path, f, "application/octet-stream", &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "attached %s (%d bytes, sha256 %s)\n", resp.Attachment.Name, resp.Attachment.Size, resp.Attachment.SHA256)
			if resp.Notice != nil {
				fmt.Fprintf(out, "notice: %s\n", resp.Notice.Message)
			}
			return nil
		},
	}
}

func declarationsDetachCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "detach ID FILENAME",
		Short: "Remove an attachment from a declaration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/declarations/" + url.PathEscape(args[0]) + "/attachments/" + url.PathEscape(args[1])
			if err := client().doJSON(cmd.Context(), http.MethodDelete, path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "detached %s\n", args[1])
			return nil
		},
	}
}

func printDeclarations(out io.Writer, ds []*dto.DeclarationResponse) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREFERENCE\tSTATUS\tDUE\tTAX BASE\tTAX DUE\tFILES")
	for _, d := range ds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			truncate(d.ID, 26), d.Reference, d.Status, d.DueDate,
			d.Totals.TaxBaseRSD.StringFixed(2), d.Totals.TaxDueRSD.StringFixed(2), len(d.Attachments))
	}
	_ = tw.Flush()
}

func rangeQuery(from, to string) url.Values {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return q
}
