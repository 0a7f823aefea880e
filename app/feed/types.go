package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
	ImageURL    string
	Language    string
}

// Item is a normalized entry from an aggregator feed. Link is the wrapped
// redirect URL as received; resolution happens downstream.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
}

// ArticleMetadata is what the page-level extractor recovers from fetched
// article HTML.
type ArticleMetadata struct {
	Title        string
	Description  string
	CanonicalURL string
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"`         // seconds
	ExtractContent  bool `yaml:"extract_content"` // fetch resolved pages and extract article content
}
