package feed

import (
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Aggregated News</title>
    <link>https://news.example.com</link>
    <description>Top stories</description>
    <language>EN-us</language>
    <item>
      <title>First story</title>
      <link>https://news.example.com/rss/articles/CBMiSGh0dHA?oc=5</link>
      <guid>story-1</guid>
      <description>Something happened</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
    </item>
    <item>
      <title>No link</title>
      <guid>story-2</guid>
    </item>
  </channel>
</rss>`

func TestParser_Run(t *testing.T) {
	parser := NewParser()

	metadata, items, err := parser.Run([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("Failed to parse feed: %v", err)
	}

	if metadata.Title != "Aggregated News" {
		t.Errorf("Expected title 'Aggregated News', got '%s'", metadata.Title)
	}
	if metadata.Language != "en-US" {
		t.Errorf("Expected normalized language 'en-US', got '%s'", metadata.Language)
	}

	// Items without a link cannot be resolved and are dropped.
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.GUID != "story-1" {
		t.Errorf("Expected GUID 'story-1', got '%s'", item.GUID)
	}
	if item.Link != "https://news.example.com/rss/articles/CBMiSGh0dHA?oc=5" {
		t.Errorf("Unexpected item link: %s", item.Link)
	}
	if item.PublishedAt.IsZero() {
		t.Error("Expected published date to be set")
	}

	want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.FixedZone("", -7*3600))
	if !item.PublishedAt.Equal(want) {
		t.Errorf("Expected published date %v, got %v", want, item.PublishedAt)
	}
}

func TestParser_Run_InvalidData(t *testing.T) {
	parser := NewParser()

	if _, _, err := parser.Run([]byte("not a feed")); err == nil {
		t.Error("Expected error for invalid feed data")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"en", "en"},
		{"EN-us", "en-US"},
		{"de-DE", "de-DE"},
		{"not a language!", "not a language!"},
	}

	for _, tt := range tests {
		if got := normalizeLanguage(tt.in); got != tt.want {
			t.Errorf("normalizeLanguage(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}
