package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MetadataExtractor pulls title, description, and canonical URL hints out of
// fetched article HTML. Open Graph values win over plain document tags.
type MetadataExtractor struct{}

func NewMetadataExtractor() *MetadataExtractor {
	return &MetadataExtractor{}
}

func (e *MetadataExtractor) Run(data []byte) (*ArticleMetadata, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	meta := &ArticleMetadata{}

	if v, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		meta.Title = strings.TrimSpace(v)
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if v, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		meta.Description = strings.TrimSpace(v)
	}
	if meta.Description == "" {
		if v, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
			meta.Description = strings.TrimSpace(v)
		}
	}

	if v, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		meta.CanonicalURL = strings.TrimSpace(v)
	}

	return meta, nil
}
