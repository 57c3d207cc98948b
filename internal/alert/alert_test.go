package alert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskwatch/riskwatch/internal/store"
)

func sampleEvents() []*store.Event {
	return []*store.Event{
		{
			Title:         "Export controls tighten on lithography tools",
			Source:        "Reuters",
			Link:          "https://example.com/ec",
			VendorPrimary: "ASML",
			RiskPrimary:   "geopolitical",
			Severity:      "Critical",
		},
		{
			Title:    "Fab resumes after outage",
			Source:   "Wire",
			RiskType: "Operations/BCP",
			Severity: "High",
		},
		{
			Title:  "Vendor hosts annual conference",
			Source: "Blog",
		},
	}
}

func TestEnabled(t *testing.T) {
	assert.False(t, New("").Enabled())
	assert.False(t, New("   ").Enabled())
	assert.True(t, New("https://hooks.example.com/T0/B0").Enabled())
}

func TestDigest(t *testing.T) {
	msg := Digest(sampleEvents(), 24*time.Hour)

	assert.Contains(t, msg, "*New vendor risk items (last 24h0m0s):*")
	assert.Contains(t, msg, "🟥 *ASML* | geopolitical (Critical)")
	assert.Contains(t, msg, "https://example.com/ec")
	assert.Contains(t, msg, "🟧 *n/a* | Operations/BCP (High)")
	assert.Contains(t, msg, "🟦 *n/a* | n/a | Blog")
}

func TestSendDigestPostsJSON(t *testing.T) {
	var body []byte
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	n := New(srv.URL)
	n.SendDigest(context.Background(), sampleEvents(), 24*time.Hour)

	require.NotEmpty(t, body)
	assert.Equal(t, "application/json", contentType)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, payload["text"], "ASML")
}

func TestSendDigestSkipsWhenEmpty(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := New(srv.URL)
	n.SendDigest(context.Background(), nil, time.Hour)
	assert.False(t, called)
}

func TestSendDigestToleratesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Must not panic or error out; delivery is best-effort.
	New(srv.URL).SendDigest(context.Background(), sampleEvents(), time.Hour)
}
