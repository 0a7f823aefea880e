package feed

import (
	"testing"
)

func TestMetadataExtractor_Run(t *testing.T) {
	html := `<html><head>
<title>Fallback title</title>
<meta property="og:title" content="OG title" />
<meta property="og:description" content="OG description" />
<link rel="canonical" href="https://example.com/canonical" />
</head><body></body></html>`

	meta, err := NewMetadataExtractor().Run([]byte(html))
	if err != nil {
		t.Fatalf("Failed to extract metadata: %v", err)
	}

	if meta.Title != "OG title" {
		t.Errorf("Expected OG title to win, got '%s'", meta.Title)
	}
	if meta.Description != "OG description" {
		t.Errorf("Expected OG description, got '%s'", meta.Description)
	}
	if meta.CanonicalURL != "https://example.com/canonical" {
		t.Errorf("Expected canonical URL, got '%s'", meta.CanonicalURL)
	}
}

func TestMetadataExtractor_Run_Fallbacks(t *testing.T) {
	html := `<html><head>
<title> Document title </title>
<meta name="description" content="Plain description" />
</head><body></body></html>`

	meta, err := NewMetadataExtractor().Run([]byte(html))
	if err != nil {
		t.Fatalf("Failed to extract metadata: %v", err)
	}

	if meta.Title != "Document title" {
		t.Errorf("Expected trimmed document title, got '%s'", meta.Title)
	}
	if meta.Description != "Plain description" {
		t.Errorf("Expected meta description fallback, got '%s'", meta.Description)
	}
	if meta.CanonicalURL != "" {
		t.Errorf("Expected empty canonical URL, got '%s'", meta.CanonicalURL)
	}
}

func TestMetadataExtractor_Run_EmptyInput(t *testing.T) {
	if _, err := NewMetadataExtractor().Run(nil); err == nil {
		t.Error("Expected error for empty HTML data")
	}
}
