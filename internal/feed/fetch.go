package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riskwatch/riskwatch/internal/logger"
)

var log = logger.ForComponent("feed")

const maxFeedBody = 8 * 1024 * 1024

// Source is one feed to fetch. Vendor is set for per-vendor news searches and
// travels through to the stored events.
type Source struct {
	URL    string
	Vendor string
}

type Fetcher struct {
	client     *http.Client
	workers    int
	maxPerFeed int
}

func NewFetcher(timeout time.Duration, workers, maxPerFeed int) *Fetcher {
	if workers <= 0 {
		workers = 4
	}
	if maxPerFeed <= 0 {
		maxPerFeed = 100
	}

	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		workers:    workers,
		maxPerFeed: maxPerFeed,
	}
}

// FetchAll retrieves every source with bounded concurrency. Per-feed failures
// are recorded on the Result instead of failing the batch; a feed being down
// should not stop the daily ingest.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) []Result {
	results := make([]Result, len(sources))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			items, err := f.fetch(ctx, src.URL)
			if err != nil {
				log.Warn("feed fetch failed", "url", src.URL, "error", err)
			}

			mu.Lock()
			results[i] = Result{URL: src.URL, Vendor: src.Vendor, Items: items, Err: err}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "riskwatch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, err
	}

	items, _, err := Parse(body)
	if err != nil {
		return nil, err
	}

	if len(items) > f.maxPerFeed {
		items = items[:f.maxPerFeed]
	}

	return items, nil
}

// GoogleNewsURL builds a Google News search feed for a vendor name.
func GoogleNewsURL(vendor string) string {
	q := url.QueryEscape(vendor)
	return fmt.Sprintf("https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en", q)
}
