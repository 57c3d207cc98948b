package feed

import (
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
)

type rssDoc struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Source      struct {
		Name string `xml:",chardata"`
	} `xml:"source"`
}

type atomDoc struct {
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

// Parse decodes an RSS 2.0 or Atom document. The feed title is returned so it
// can serve as the item source when entries carry none.
func Parse(data []byte) ([]Item, string, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, "", fmt.Errorf("empty feed document")
	}

	if strings.Contains(trimmed[:min(len(trimmed), 512)], "<feed") && !strings.Contains(trimmed[:min(len(trimmed), 512)], "<rss") {
		return parseAtom(data)
	}
	return parseRSS(data)
}

func parseRSS(data []byte) ([]Item, string, error) {
	var doc rssDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("parse rss: %w", err)
	}

	feedTitle := strings.TrimSpace(doc.Channel.Title)
	items := make([]Item, 0, len(doc.Channel.Items))

	for _, raw := range doc.Channel.Items {
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			continue
		}

		source := strings.TrimSpace(raw.Source.Name)
		if source == "" {
			source = feedTitle
		}

		published, ok := ParseDate(raw.PubDate)
		if !ok {
			published = time.Now().UTC()
		}

		items = append(items, Item{
			Title:     title,
			Link:      strings.TrimSpace(raw.Link),
			Summary:   StripHTML(raw.Description),
			Source:    source,
			Published: published,
		})
	}

	return items, feedTitle, nil
}

func parseAtom(data []byte) ([]Item, string, error) {
	var doc atomDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("parse atom: %w", err)
	}

	feedTitle := strings.TrimSpace(doc.Title)
	items := make([]Item, 0, len(doc.Entries))

	for _, raw := range doc.Entries {
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			continue
		}

		var link string
		for _, l := range raw.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}

		summary := raw.Summary
		if summary == "" {
			summary = raw.Content
		}

		dateStr := raw.Published
		if dateStr == "" {
			dateStr = raw.Updated
		}
		published, ok := ParseDate(dateStr)
		if !ok {
			published = time.Now().UTC()
		}

		items = append(items, Item{
			Title:     title,
			Link:      strings.TrimSpace(link),
			Summary:   StripHTML(summary),
			Source:    feedTitle,
			Published: published,
		})
	}

	return items, feedTitle, nil
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate tries the date layouts seen across real-world feeds. The result
// is normalized to UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)
var spacePattern = regexp.MustCompile(`\s+`)

// StripHTML flattens markup-laden summaries (Google News wraps them in anchor
// tags) into plain text.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
