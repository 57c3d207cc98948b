package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskwatch/riskwatch/internal/store"
)

var (
	queryRisk   string
	queryVendor string
	queryText   string
	querySince  time.Duration
	queryLimit  int
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the latest stored events, newest first",
	Long: `Examples:
  riskwatch query --limit 10
  riskwatch query --risk Geopolitical --limit 5
  riskwatch query --q "TSMC" --since 48h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		f := store.Filter{
			Risk:   queryRisk,
			Vendor: queryVendor,
			Query:  queryText,
			Limit:  queryLimit,
		}
		if querySince > 0 {
			f.Since = time.Now().UTC().Add(-querySince)
		}

		events, err := st.Latest(f)
		if err != nil {
			return err
		}

		if queryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		}

		for _, e := range events {
			risk := e.RiskType
			if risk == "" {
				risk = "untagged"
			}
			fmt.Printf("- [%s] (%s) %s: %s\n", e.PublishedAt.Format("2006-01-02 15:04"), risk, e.Source, e.Title)
			fmt.Printf("  %s\n", e.Link)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the event store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats()
		if err != nil {
			return err
		}

		if queryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		fmt.Printf("events:   %d\n", stats.TotalEvents)
		fmt.Printf("untagged: %d\n", stats.Untagged)
		if !stats.LastPublished.IsZero() {
			fmt.Printf("latest:   %s\n", stats.LastPublished.Format(time.RFC3339))
		}
		if len(stats.RiskCounts) > 0 {
			fmt.Println("by risk:")
			for risk, n := range stats.RiskCounts {
				fmt.Printf("  %-24s %d\n", risk, n)
			}
		}
		if len(stats.TopSources) > 0 {
			fmt.Println("top sources:")
			for _, sc := range stats.TopSources {
				fmt.Printf("  %-32s %d\n", sc.Source, sc.Count)
			}
		}
		return nil
	},
}

func openStore() (*store.Store, error) {
	if _, err := os.Stat(cfg.Store.DBPath); err != nil {
		return nil, fmt.Errorf("database not found at %s, run ingest first", cfg.Store.DBPath)
	}
	return store.Open(cfg.Store.DBPath)
}

func init() {
	queryCmd.Flags().StringVar(&queryRisk, "risk", "", "filter by risk type (e.g. geopolitical)")
	queryCmd.Flags().StringVar(&queryVendor, "vendor", "", "filter by matched vendor")
	queryCmd.Flags().StringVar(&queryText, "q", "", "LIKE filter over title/summary/source")
	queryCmd.Flags().DurationVar(&querySince, "since", 0, "only events published within this window (e.g. 48h)")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 20, "maximum rows")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "emit JSON")
	statsCmd.Flags().BoolVar(&queryJSON, "json", false, "emit JSON")

	rootCmd.AddCommand(queryCmd, statsCmd)
}
