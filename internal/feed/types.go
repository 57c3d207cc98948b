package feed

import "time"

// Item is a single entry from an RSS or Atom feed, reduced to the fields the
// pipeline stores.
type Item struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	Published time.Time `json:"published"`
}

// Result is the outcome of fetching one feed URL. Individual feed failures
// are reported here instead of aborting the whole ingest cycle.
type Result struct {
	URL    string
	Vendor string
	Items  []Item
	Err    error
}
