package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grantscope/usaspending-mcp/internal/config"
	"github.com/grantscope/usaspending-mcp/internal/logging"
	"github.com/grantscope/usaspending-mcp/pkg/filter"
	"github.com/grantscope/usaspending-mcp/pkg/normalize"
	"github.com/grantscope/usaspending-mcp/pkg/query"
)

var (
	flagSearchConfig string
	flagKeyword      string
	flagAwardType    string
	flagAgency       string
	flagRecipient    string
	flagFiscalYear   int
	flagStartDate    string
	flagEndDate      string
	flagMinAmount    float64
	flagMaxAmount    float64
	flagLimit        int
)

func init() {
	searchCmd.Flags().StringVar(&flagSearchConfig, "config", "", "Path to a YAML config file")
	searchCmd.Flags().StringVar(&flagKeyword, "keyword", "", "Free-text search terms")
	searchCmd.Flags().StringVar(&flagAwardType, "award-type", "", "Award category (grant, cooperative_agreement, ...)")
	searchCmd.Flags().StringVar(&flagAgency, "agency", "", "Awarding top-tier agency name")
	searchCmd.Flags().StringVar(&flagRecipient, "recipient", "", "Recipient name search text")
	searchCmd.Flags().IntVar(&flagFiscalYear, "fiscal-year", 0, "US federal fiscal year")
	searchCmd.Flags().StringVar(&flagStartDate, "start-date", "", "Range start, YYYY-MM-DD")
	searchCmd.Flags().StringVar(&flagEndDate, "end-date", "", "Range end, YYYY-MM-DD")
	searchCmd.Flags().Float64Var(&flagMinAmount, "min-amount", 0, "Minimum award amount in dollars")
	searchCmd.Flags().Float64Var(&flagMaxAmount, "max-amount", 0, "Maximum award amount in dollars")
	searchCmd.Flags().IntVar(&flagLimit, "limit", 0, "Results per page (1-100)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a one-shot award search and print the result as JSON",
	Long: `Run one award search through the same validation, query-building,
fetching, and normalization pipeline the MCP tool uses, and print the
SearchResult JSON to stdout. Useful for smoke-testing filters without an
MCP client.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(flagSearchConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		// Only flags the user actually set become arguments, so validation
		// sees exactly what an MCP client would have sent.
		args := map[string]any{}
		setIfChanged := func(flagName, argName string, value any) {
			if cmd.Flags().Changed(flagName) {
				args[argName] = value
			}
		}
		setIfChanged("keyword", "keyword", flagKeyword)
		setIfChanged("award-type", "award_type", flagAwardType)
		setIfChanged("agency", "agency", flagAgency)
		setIfChanged("recipient", "recipient", flagRecipient)
		setIfChanged("fiscal-year", "fiscal_year", flagFiscalYear)
		setIfChanged("start-date", "start_date", flagStartDate)
		setIfChanged("end-date", "end_date", flagEndDate)
		setIfChanged("min-amount", "min_amount", flagMinAmount)
		setIfChanged("max-amount", "max_amount", flagMaxAmount)
		setIfChanged("limit", "limit", flagLimit)

		f, err := filter.Validate(args)
		if err != nil {
			return err
		}

		client := newUpstreamClient(cfg, log)
		rs, err := client.FetchAll(cmd.Context(), query.Build(f, 1))
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		awards, err := normalize.All(rs.Records)
		if err != nil {
			return fmt.Errorf("normalize results: %w", err)
		}

		out := struct {
			Awards        []normalize.NormalizedAward `json:"awards"`
			TotalReturned int                         `json:"totalReturned"`
			PagesFetched  int                         `json:"pagesFetched"`
			HasMore       bool                        `json:"hasMore"`
		}{awards, len(awards), rs.Pages, rs.HasMore}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
