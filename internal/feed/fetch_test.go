package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedBody(itemCount int) string {
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>Test Feed</title>`
	for i := 0; i < itemCount; i++ {
		body += fmt.Sprintf(`<item><title>item %d</title><link>https://example.com/%d</link><pubDate>Mon, 12 Aug 2024 08:30:00 +0000</pubDate></item>`, i, i)
	}
	return body + `</channel></rss>`
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, feedBody(3))
		case "/many":
			fmt.Fprint(w, feedBody(10))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 2, 5)

	results := f.FetchAll(context.Background(), []Source{
		{URL: srv.URL + "/ok", Vendor: "TSMC"},
		{URL: srv.URL + "/many"},
		{URL: srv.URL + "/missing"},
	})
	require.Len(t, results, 3)

	assert.Equal(t, "TSMC", results[0].Vendor)
	require.NoError(t, results[0].Err)
	assert.Len(t, results[0].Items, 3)

	require.NoError(t, results[1].Err)
	assert.Len(t, results[1].Items, 5, "items are capped at maxPerFeed")

	assert.Error(t, results[2].Err, "a failing feed is reported, not fatal")
}

func TestFetchSetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, feedBody(1))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 1, 10)
	results := f.FetchAll(context.Background(), []Source{{URL: srv.URL}})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "riskwatch/1.0", gotUA)
}
