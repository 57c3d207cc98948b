package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Example Risk Wire</title>
<item>
  <title>TSMC expands Arizona fab</title>
  <link>https://example.com/tsmc-arizona</link>
  <description>&lt;a href="https://example.com"&gt;TSMC&lt;/a&gt; expands its &amp;quot;gigafab&amp;quot; campus</description>
  <pubDate>Mon, 12 Aug 2024 08:30:00 +0000</pubDate>
  <source url="https://reuters.com">Reuters</source>
</item>
<item>
  <title>ASML export license revoked</title>
  <link>https://example.com/asml-license</link>
  <description>Plain summary</description>
  <pubDate>not a date</pubDate>
</item>
<item>
  <title></title>
  <link>https://example.com/skipped</link>
</item>
</channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Vendor Alerts</title>
<entry>
  <title>Samsung Foundry yield issues reported</title>
  <link rel="alternate" href="https://example.com/samsung-yield"/>
  <summary>Summary text</summary>
  <published>2024-08-12T10:00:00Z</published>
</entry>
<entry>
  <title>Updated entry without published</title>
  <link href="https://example.com/updated-only"/>
  <content>Content used as summary</content>
  <updated>2024-08-11T09:00:00Z</updated>
</entry>
</feed>`

func TestParseRSS(t *testing.T) {
	items, title, err := Parse([]byte(rssFixture))
	require.NoError(t, err)
	assert.Equal(t, "Example Risk Wire", title)
	require.Len(t, items, 2, "item without title is dropped")

	first := items[0]
	assert.Equal(t, "TSMC expands Arizona fab", first.Title)
	assert.Equal(t, "https://example.com/tsmc-arizona", first.Link)
	assert.Equal(t, "Reuters", first.Source)
	assert.Equal(t, `TSMC expands its "gigafab" campus`, first.Summary)
	assert.Equal(t, time.Date(2024, 8, 12, 8, 30, 0, 0, time.UTC), first.Published)

	second := items[1]
	assert.Equal(t, "Example Risk Wire", second.Source, "feed title backs a missing item source")
	assert.WithinDuration(t, time.Now().UTC(), second.Published, time.Minute, "unparseable date falls back to now")
}

func TestParseAtom(t *testing.T) {
	items, title, err := Parse([]byte(atomFixture))
	require.NoError(t, err)
	assert.Equal(t, "Vendor Alerts", title)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "Samsung Foundry yield issues reported", first.Title)
	assert.Equal(t, "https://example.com/samsung-yield", first.Link)
	assert.Equal(t, "Vendor Alerts", first.Source)
	assert.Equal(t, time.Date(2024, 8, 12, 10, 0, 0, 0, time.UTC), first.Published)

	second := items[1]
	assert.Equal(t, "Content used as summary", second.Summary)
	assert.Equal(t, time.Date(2024, 8, 11, 9, 0, 0, 0, time.UTC), second.Published, "updated backs a missing published")
}

func TestParseEmpty(t *testing.T) {
	_, _, err := Parse([]byte("   "))
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"Mon, 12 Aug 2024 08:30:00 +0000", time.Date(2024, 8, 12, 8, 30, 0, 0, time.UTC)},
		{"2024-08-12T08:30:00Z", time.Date(2024, 8, 12, 8, 30, 0, 0, time.UTC)},
		{"2024-08-12", time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		require.True(t, ok, tc.in)
		assert.True(t, got.Equal(tc.want), "%s parsed to %s", tc.in, got)
	}

	_, ok := ParseDate("yesterday-ish")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)
}

func TestStripHTML(t *testing.T) {
	in := `<a href="https://example.com">TSMC</a> halts &amp; restarts
	<b>production</b>`
	assert.Equal(t, "TSMC halts & restarts production", StripHTML(in))
}

func TestGoogleNewsURL(t *testing.T) {
	u := GoogleNewsURL("Tokyo Electron")
	assert.Contains(t, u, "news.google.com/rss/search")
	assert.Contains(t, u, "q=Tokyo+Electron")
}
