package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Event is one ingested news item. Identity is content-derived so daily
// re-runs of the pipeline upsert instead of duplicating.
type Event struct {
	HashID        string    `json:"hash_id"`
	PublishedAt   time.Time `json:"published_at"`
	Title         string    `json:"title"`
	Source        string    `json:"source"`
	Link          string    `json:"link"`
	Summary       string    `json:"summary"`
	VendorPrimary string    `json:"vendor_primary,omitempty"`
	VendorMatches string    `json:"vendor_matches,omitempty"`
	RiskType      string    `json:"risk_type,omitempty"`
	RiskPrimary   string    `json:"risk_primary,omitempty"`
	RiskScore     float64   `json:"risk_score,omitempty"`
	Severity      string    `json:"severity,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EventID derives the stable identity hash from the given parts, usually
// vendor, title, and link.
func EventID(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "||")))
	return hex.EncodeToString(h[:])
}

type Filter struct {
	Risk   string
	Vendor string
	Query  string
	Since  time.Time
	Limit  int
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

type Stats struct {
	TotalEvents    int64            `json:"total_events"`
	Untagged       int64            `json:"untagged"`
	RiskCounts     map[string]int64 `json:"risk_counts"`
	SeverityCounts map[string]int64 `json:"severity_counts"`
	TopSources     []SourceCount    `json:"top_sources"`
	LastPublished  time.Time        `json:"last_published,omitempty"`
}
