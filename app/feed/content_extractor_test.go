package feed

import (
	"strings"
	"testing"
)

const sampleArticleHTML = `<!DOCTYPE html>
<html>
<head><title>First story</title></head>
<body>
<article>
<h1>First story</h1>
<p>The first paragraph of the story, with enough words to look like an
actual article body rather than boilerplate navigation text. It keeps
going for a while so the readability heuristics have something to work
with.</p>
<p>A second paragraph with a <a href="https://example.com/more">link</a>
and some <strong>emphasis</strong> to exercise the markdown conversion
path end to end.</p>
</article>
</body>
</html>`

func TestContentExtractor_Run(t *testing.T) {
	extractor := NewContentExtractor()

	markdown, err := extractor.Run([]byte(sampleArticleHTML), "https://example.com/story-1")
	if err != nil {
		t.Fatalf("Failed to extract content: %v", err)
	}

	if !strings.Contains(markdown, "first paragraph") {
		t.Errorf("Expected extracted body text, got: %s", markdown)
	}
	if strings.Contains(markdown, "<p>") {
		t.Error("Expected markdown output, found raw HTML tags")
	}
}

func TestContentExtractor_Run_EmptyInput(t *testing.T) {
	extractor := NewContentExtractor()

	if _, err := extractor.Run(nil, "https://example.com/x"); err == nil {
		t.Error("Expected error for empty HTML data")
	}
}
