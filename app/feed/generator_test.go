package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/dpetrov/link-comb/app/cfg"
	"github.com/dpetrov/link-comb/app/database"
)

func TestGenerator_Run(t *testing.T) {
	cfg.Set(&cfg.Cfg{Port: "8080", Version: "test"})

	source := database.Source{
		Name:        "newsline",
		FeedURL:     "https://news.example.com/rss",
		Link:        "https://news.example.com",
		Title:       "Aggregated News",
		Description: "Top stories",
		Language:    "en-US",
	}

	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	articles := []database.Article{
		{
			GUID:        "story-1",
			WrappedURL:  "https://news.example.com/rss/articles/CBMiSGh0dHA",
			ResolvedURL: "https://example.com/story-1",
			Title:       "First story",
			Description: "Something happened",
			Content:     "# First story\n\nBody text.",
			PublishedAt: published,
		},
	}

	rss, err := NewGenerator().Run(source, articles)
	if err != nil {
		t.Fatalf("Failed to generate RSS: %v", err)
	}

	checks := []string{
		"<title>Aggregated News</title>",
		"<language>en-US</language>",
		"<link>https://example.com/story-1</link>",
		`<guid isPermaLink="false">story-1</guid>`,
		"<content:encoded><![CDATA[# First story",
	}
	for _, want := range checks {
		if !strings.Contains(rss, want) {
			t.Errorf("Expected RSS to contain %q", want)
		}
	}

	// The wrapped aggregator URL must never leak into the output.
	if strings.Contains(rss, "rss/articles/CBMiSGh0dHA") {
		t.Error("RSS output contains the wrapped URL")
	}
}

func TestGenerator_Run_EmptySource(t *testing.T) {
	cfg.Set(&cfg.Cfg{Port: "8080", Version: "test"})

	source := database.Source{Name: "empty", FeedURL: "https://e.example.com/rss"}

	rss, err := NewGenerator().Run(source, nil)
	if err != nil {
		t.Fatalf("Failed to generate RSS: %v", err)
	}

	if !strings.Contains(rss, "<title>empty</title>") {
		t.Error("Expected source name as fallback title")
	}
	if !strings.Contains(rss, "</rss>") {
		t.Error("Expected well-formed document end")
	}
}
