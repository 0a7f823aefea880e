package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	nurl "net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
)

// ContentExtractor recovers the readable article body from fetched HTML and
// stores it as Markdown.
type ContentExtractor struct {
	converter *md.Converter
}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{
		converter: md.NewConverter("", true, nil),
	}
}

func (e *ContentExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	markdown, err := e.converter.ConvertString(article.Content)
	if err != nil {
		return "", fmt.Errorf("failed to convert content to markdown: %w", err)
	}

	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", fmt.Errorf("extracted content is empty after conversion")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(markdown))

	return markdown, nil
}
