package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Defaults for the persistent flags; TAXLEDGER_URL overrides the URL.
const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 30 * time.Second
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)

	rootCmd := &cobra.Command{
		Use:           "taxledger-cli",
		Short:         "TaxLedger CLI tool",
		Long:          `A command line interface for importing transactions and managing tax declarations through the TaxLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	url := os.Getenv("TAXLEDGER_URL")
	if url == "" {
		url = defaultBaseURL
	}
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", url, "Base URL of the TaxLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Request timeout")

	client := func() *apiClient { return newAPIClient(baseURL, timeout) }

	rootCmd.AddCommand(
		importCmd(client),
		syncCmd(client),
		reconcileCmd(client),
		ledgerCmd(client),
		ratesCmd(client),
		gainsCmd(client),
		activityCmd(client),
		declarationsCmd(client),
	)
	return rootCmd
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
