package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskwatch/riskwatch/internal/classify"
	"github.com/riskwatch/riskwatch/internal/feed"
	"github.com/riskwatch/riskwatch/internal/pipeline"
	"github.com/riskwatch/riskwatch/internal/store"
)

// buildEnv opens the store and loads the classification rules. The caller
// closes the returned store.
func buildEnv() (*store.Store, pipeline.Env, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, pipeline.Env{}, err
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, pipeline.Env{}, err
	}

	rules, err := classify.LoadRuleSet(cfg.Classify.ConfigDir)
	if err != nil {
		st.Close()
		return nil, pipeline.Env{}, err
	}

	classifier, err := classify.New(rules)
	if err != nil {
		st.Close()
		return nil, pipeline.Env{}, err
	}

	env := pipeline.Env{
		Store:       st,
		Fetcher:     feed.NewFetcher(cfg.Ingest.FetchTimeout, cfg.Ingest.FetchWorkers, cfg.Ingest.MaxPerFeed),
		Classifier:  classifier,
		Rules:       rules,
		Feeds:       cfg.Ingest.Feeds,
		Vendors:     cfg.Ingest.Vendors,
		ClassifyDir: cfg.Classify.ConfigDir,
	}
	return st, env, nil
}

func runSteps(cmd *cobra.Command, p *pipeline.Pipeline) error {
	report, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}
	for _, step := range report.Steps {
		fmt.Printf("%-20s ok (%s)\n", step.Name, step.Duration.Round(time.Millisecond))
	}
	return nil
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch configured feeds and upsert new items into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, env, err := buildEnv()
		if err != nil {
			return err
		}
		defer st.Close()

		return runSteps(cmd, pipeline.New(env.IngestStep()))
	},
}

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Re-run vendor and risk classification over all stored events",
	Long: `Reads the rule files under the classify config dir (vendors.csv,
vendor_aliases.json, risk_types.json, risk_keywords.json) and rewrites the
vendor_matches and risk_type columns for every event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !classify.HasReclassifyConfig(cfg.Classify.ConfigDir) {
			return fmt.Errorf("no risk_keywords.json under %s; create the rule files first", cfg.Classify.ConfigDir)
		}

		st, env, err := buildEnv()
		if err != nil {
			return err
		}
		defer st.Close()

		return runSteps(cmd, pipeline.New(env.ReclassifyStep()))
	},
}

var reclassifyPrimaryCmd = &cobra.Command{
	Use:   "reclassify-primary",
	Short: "Recompute primary vendor and weighted primary risk for all events",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !classify.HasPrimaryConfig(cfg.Classify.ConfigDir) {
			return fmt.Errorf("no risk_model.json under %s; create the model first", cfg.Classify.ConfigDir)
		}

		st, env, err := buildEnv()
		if err != nil {
			return err
		}
		defer st.Close()

		return runSteps(cmd, pipeline.New(env.ReclassifyPrimaryStep()))
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline once (ingest plus any configured reclassify passes)",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, env, err := buildEnv()
		if err != nil {
			return err
		}
		defer st.Close()

		return runSteps(cmd, pipeline.Build(env))
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd, reclassifyCmd, reclassifyPrimaryCmd, runCmd)
}
