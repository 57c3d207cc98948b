package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var qualityOut string

type qualityReport struct {
	Database       string           `json:"database"`
	GeneratedAt    time.Time        `json:"generated_at"`
	Rows           int64            `json:"rows"`
	Untagged       int64            `json:"untagged"`
	UntaggedShare  float64          `json:"untagged_share"`
	RiskCounts     map[string]int64 `json:"risk_counts"`
	SeverityCounts map[string]int64 `json:"severity_counts"`
	TopSources     map[string]int64 `json:"top_sources"`
	LastPublished  time.Time        `json:"last_published,omitempty"`
}

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Write a data quality report for the event store",
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

		report := qualityReport{
			Database:       cfg.Store.DBPath,
			GeneratedAt:    time.Now().UTC(),
			Rows:           stats.TotalEvents,
			Untagged:       stats.Untagged,
			RiskCounts:     stats.RiskCounts,
			SeverityCounts: stats.SeverityCounts,
			TopSources:     make(map[string]int64, len(stats.TopSources)),
			LastPublished:  stats.LastPublished,
		}
		if stats.TotalEvents > 0 {
			report.UntaggedShare = float64(stats.Untagged) / float64(stats.TotalEvents)
		}
		for _, sc := range stats.TopSources {
			report.TopSources[sc.Source] = sc.Count
		}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}

		if qualityOut == "-" {
			fmt.Println(string(data))
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(qualityOut), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(qualityOut, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", qualityOut)
		return nil
	},
}

func init() {
	qualityCmd.Flags().StringVar(&qualityOut, "out", "logs/quality_report.json", `report path ("-" for stdout)`)
	rootCmd.AddCommand(qualityCmd)
}
