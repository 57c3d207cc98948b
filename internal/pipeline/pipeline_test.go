package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskwatch/riskwatch/internal/classify"
	"github.com/riskwatch/riskwatch/internal/feed"
	"github.com/riskwatch/riskwatch/internal/store"
)

func TestRunExecutesStepsInOrder(t *testing.T) {
	var order []string
	step := func(name string) Step {
		return Step{Name: name, Run: func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}}
	}

	p := New(step("first"), step("second"), step("third"))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Steps, 3)
	assert.Equal(t, "first", report.Steps[0].Name)
	assert.False(t, report.FinishedAt.IsZero())
}

func TestRunFailsFast(t *testing.T) {
	var order []string
	boom := errors.New("boom")

	p := New(
		Step{Name: "ok", Run: func(ctx context.Context) error {
			order = append(order, "ok")
			return nil
		}},
		Step{Name: "fails", Run: func(ctx context.Context) error {
			return boom
		}},
		Step{Name: "never", Run: func(ctx context.Context) error {
			order = append(order, "never")
			return nil
		}},
	)

	report, err := p.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "step fails")
	assert.Equal(t, []string{"ok"}, order)
	assert.Len(t, report.Steps, 1, "only completed steps are reported")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Step{Name: "skipped", Run: func(ctx context.Context) error {
		t.Fatal("step ran on cancelled context")
		return nil
	}})

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildGatesOnConfigPresence(t *testing.T) {
	dir := t.TempDir()

	env := Env{ClassifyDir: dir}
	assert.Equal(t, []string{"ingest"}, Build(env).StepNames())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "risk_keywords.json"), []byte(`{"geopolitical":["tariff"]}`), 0o644))
	assert.Equal(t, []string{"ingest", "reclassify"}, Build(env).StepNames())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "risk_model.json"), []byte(`{}`), 0o644))
	assert.Equal(t, []string{"ingest", "reclassify", "reclassify-primary"}, Build(env).StepNames())
}

func newTestEnv(t *testing.T, feeds []string, vendors []string) Env {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rules, err := classify.LoadRuleSet(t.TempDir())
	require.NoError(t, err)
	classifier, err := classify.New(rules)
	require.NoError(t, err)

	return Env{
		Store:      st,
		Fetcher:    feed.NewFetcher(5*time.Second, 2, 50),
		Classifier: classifier,
		Rules:      rules,
		Feeds:      feeds,
		Vendors:    vendors,
	}
}

func TestIngestStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Wire</title>
<item><title>New export control package targets fabs</title><link>https://example.com/ec</link><pubDate>Mon, 12 Aug 2024 08:30:00 +0000</pubDate></item>
<item><title>Vendor opens museum</title><link>https://example.com/mu</link><pubDate>Mon, 12 Aug 2024 09:30:00 +0000</pubDate></item>
</channel></rss>`)
	}))
	defer srv.Close()

	env := newTestEnv(t, []string{srv.URL}, nil)

	p := New(env.IngestStep())
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	events, err := env.Store.All()
	require.NoError(t, err)
	require.Len(t, events, 2)

	// The tag pass ran over the new rows.
	tagged, err := env.Store.Latest(store.Filter{Query: "export control"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "Export/Geo", tagged[0].RiskType)
	assert.Equal(t, "Critical", tagged[0].Severity)

	// Re-running ingests the same items without duplicating.
	_, err = p.Run(context.Background())
	require.NoError(t, err)
	events, err = env.Store.All()
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestReclassifySteps(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	e := &store.Event{
		HashID:      store.EventID("TSMC faces new tariff pressure", "https://example.com/t"),
		PublishedAt: time.Now().UTC(),
		Title:       "TSMC faces new tariff pressure",
		Link:        "https://example.com/t",
		Source:      "Wire",
	}
	require.NoError(t, env.Store.Upsert(e))

	_, err := New(env.ReclassifyStep(), env.ReclassifyPrimaryStep()).Run(context.Background())
	require.NoError(t, err)

	events, err := env.Store.All()
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, "TSMC", got.VendorMatches)
	assert.Contains(t, got.RiskType, "geopolitical")
	assert.Equal(t, "TSMC", got.VendorPrimary)
	assert.Equal(t, "geopolitical", got.RiskPrimary)
	assert.Greater(t, got.RiskScore, 0.0)
}

func TestItemToEvent(t *testing.T) {
	published := time.Now().UTC()

	e := itemToEvent(feed.Item{Title: "t", Link: "l", Published: published}, "TSMC")
	require.NotNil(t, e)
	assert.Equal(t, store.EventID("TSMC", "t", "l"), e.HashID)
	assert.Equal(t, "TSMC", e.VendorPrimary)

	plain := itemToEvent(feed.Item{Title: "t", Link: "l"}, "")
	require.NotNil(t, plain)
	assert.Equal(t, store.EventID("t", "l"), plain.HashID)
	assert.NotEqual(t, e.HashID, plain.HashID)

	assert.Nil(t, itemToEvent(feed.Item{Link: "l"}, ""), "untitled items are dropped")
}
