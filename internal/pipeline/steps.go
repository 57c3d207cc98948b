package pipeline

import (
	"context"
	"strings"

	"github.com/riskwatch/riskwatch/internal/classify"
	"github.com/riskwatch/riskwatch/internal/feed"
	"github.com/riskwatch/riskwatch/internal/store"
)

const tagBatchSize = 10000

// Env carries the collaborators the concrete pipeline steps work against.
type Env struct {
	Store       *store.Store
	Fetcher     *feed.Fetcher
	Classifier  *classify.Classifier
	Rules       *classify.RuleSet
	Feeds       []string
	Vendors     []string
	ClassifyDir string
}

// Build assembles the daily pipeline: ingest always runs; the reclassify
// passes run only when their configuration is present on disk.
func Build(env Env) *Pipeline {
	steps := []Step{env.IngestStep()}

	if classify.HasReclassifyConfig(env.ClassifyDir) {
		steps = append(steps, env.ReclassifyStep())
	} else {
		log.Debug("no reclassify config, skipping pass", "dir", env.ClassifyDir)
	}

	if classify.HasPrimaryConfig(env.ClassifyDir) {
		steps = append(steps, env.ReclassifyPrimaryStep())
	} else {
		log.Debug("no risk model, skipping primary pass", "dir", env.ClassifyDir)
	}

	return New(steps...)
}

func (env Env) IngestStep() Step {
	return Step{Name: "ingest", Run: env.ingest}
}

func (env Env) ReclassifyStep() Step {
	return Step{Name: "reclassify", Run: env.reclassify}
}

func (env Env) ReclassifyPrimaryStep() Step {
	return Step{Name: "reclassify-primary", Run: env.reclassifyPrimary}
}

func (env Env) sources() []feed.Source {
	var sources []feed.Source

	for _, u := range env.Feeds {
		sources = append(sources, feed.Source{URL: u})
	}

	// The built-in vendor list only kicks in when nothing is configured at
	// all; explicit feeds without vendors mean just those feeds.
	vendors := env.Vendors
	if len(vendors) == 0 && len(env.Feeds) == 0 {
		vendors = env.Rules.Vendors
	}
	for _, v := range vendors {
		canonical := env.Rules.CanonicalVendor(v)
		sources = append(sources, feed.Source{URL: feed.GoogleNewsURL(canonical), Vendor: canonical})
	}

	return sources
}

// ingest fetches every configured feed, upserts the items, and backfills
// risk tags on still-untagged rows. Feed failures are tolerated; store
// failures abort.
func (env Env) ingest(ctx context.Context) error {
	results := env.Fetcher.FetchAll(ctx, env.sources())

	upserts := 0
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			continue
		}

		for _, item := range result.Items {
			event := itemToEvent(item, result.Vendor)
			if event == nil {
				continue
			}
			if err := env.Store.Upsert(event); err != nil {
				return err
			}
			upserts++
		}
	}

	log.Info("ingest finished", "upserts", upserts, "feeds", len(results), "failed_feeds", failed)

	return env.tagUntagged()
}

func itemToEvent(item feed.Item, vendor string) *store.Event {
	if item.Title == "" {
		return nil
	}

	link := item.Link
	if link == "" {
		link = item.Title
	}

	var hashID string
	if vendor != "" {
		hashID = store.EventID(vendor, item.Title, link)
	} else {
		hashID = store.EventID(item.Title, link)
	}

	return &store.Event{
		HashID:        hashID,
		PublishedAt:   item.Published,
		Title:         item.Title,
		Source:        item.Source,
		Link:          item.Link,
		Summary:       item.Summary,
		VendorPrimary: vendor,
		VendorMatches: vendor,
	}
}

// tagUntagged fills risk_type/severity on rows the tag table can decide,
// leaving fields that already carry values untouched.
func (env Env) tagUntagged() error {
	events, err := env.Store.Untagged(tagBatchSize)
	if err != nil {
		return err
	}

	updated := 0
	for _, event := range events {
		riskType, severity := env.Classifier.Tag(event.Title + " " + event.Summary)
		if riskType == "" && severity == "" {
			continue
		}
		if event.RiskType != "" {
			riskType = event.RiskType
		}
		if event.Severity != "" {
			severity = event.Severity
		}
		if err := env.Store.UpdateTags(event.HashID, riskType, severity); err != nil {
			return err
		}
		updated++
	}

	log.Info("tag pass finished", "candidates", len(events), "updated", updated)
	return nil
}

// reclassify re-derives vendor matches and the full risk list for every
// stored event from the current rule files.
func (env Env) reclassify(ctx context.Context) error {
	events, err := env.Store.All()
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		text := event.Title + " " + event.Summary
		vendors := env.Classifier.Vendors(text)
		risks := env.Classifier.Risks(text, len(vendors) > 0)

		err := env.Store.UpdateClassification(event.HashID, strings.Join(vendors, ", "), strings.Join(risks, ", "))
		if err != nil {
			return err
		}
	}

	log.Info("reclassify finished", "events", len(events))
	return nil
}

// reclassifyPrimary scores every event against the risk model and records a
// single primary vendor, primary risk, and score.
func (env Env) reclassifyPrimary(ctx context.Context) error {
	events, err := env.Store.All()
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		text := event.Title + " " + event.Summary
		vendor := env.Classifier.PrimaryVendor(text)
		risk, score := env.Classifier.Primary(text, vendor != "")

		if err := env.Store.UpdatePrimary(event.HashID, vendor, risk, score); err != nil {
			return err
		}
	}

	log.Info("primary pass finished", "events", len(events))
	return nil
}
