package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dpetrov/link-comb/app/database"
	"github.com/dpetrov/link-comb/app/feed"
	"github.com/dpetrov/link-comb/app/resolver"
)

type ExtractContentTask struct {
	Task
	SourceConfig      *feed.Config
	httpClient        *http.Client
	urlValidator      resolver.URLValidator
	metadataExtractor *feed.MetadataExtractor
	contentExtractor  *feed.ContentExtractor
	articleRepo       database.ArticleRepository
	userAgent         string
}

func NewExtractContentTask(sourceName string, sourceConfig *feed.Config, httpClient *http.Client, urlValidator resolver.URLValidator, metadataExtractor *feed.MetadataExtractor, contentExtractor *feed.ContentExtractor, articleRepo database.ArticleRepository, userAgent string) *ExtractContentTask {
	return &ExtractContentTask{
		Task:              NewTask(TaskTypeExtractContent, sourceName),
		SourceConfig:      sourceConfig,
		httpClient:        httpClient,
		urlValidator:      urlValidator,
		metadataExtractor: metadataExtractor,
		contentExtractor:  contentExtractor,
		articleRepo:       articleRepo,
		userAgent:         userAgent,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.ExtractContent {
		slog.Debug("Content extraction disabled for source", "source", t.SourceName)
		return nil
	}

	articles, err := t.articleRepo.GetArticlesForExtraction(t.SourceName, t.SourceConfig.Settings.MaxItems)
	if err != nil {
		return fmt.Errorf("failed to get articles for content extraction: %w", err)
	}

	if len(articles) == 0 {
		slog.Debug("No articles need content extraction", "source", t.SourceName)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, article := range articles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		extractCtx, cancel := context.WithTimeout(ctx, time.Duration(t.SourceConfig.Settings.Timeout)*time.Second)

		err := t.extractContentForArticle(extractCtx, article)
		cancel()

		if err != nil {
			slog.Error("Failed to extract content for article", "article_id", article.ID, "url", article.ResolvedURL, "error", err)
			errorCount++

			now := time.Now().UTC()
			err = t.articleRepo.UpdateExtractionStatus(article.ID, database.ExtractionStatusFailed, &now, err.Error())
			if err != nil {
				slog.Error("Failed to update content extraction status", "article_id", article.ID, "error", err)
			}
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", "ExtractContent",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extractContentForArticle(ctx context.Context, article database.ArticleForExtraction) error {
	if article.ResolvedURL == "" {
		return fmt.Errorf("article has no resolved URL")
	}

	// Resolution already validated the URL, but the row may predate a
	// policy change. Revalidate before issuing the request.
	if err := t.urlValidator.Validate(article.ResolvedURL); err != nil {
		return fmt.Errorf("resolved URL rejected: %w", err)
	}

	data, err := t.fetchArticlePage(ctx, article.ResolvedURL)
	if err != nil {
		return fmt.Errorf("failed to fetch article page: %w", err)
	}

	t.backfillMetadata(article, data)

	extractedContent, err := t.contentExtractor.Run(data, article.ResolvedURL)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	now := time.Now().UTC()
	err = t.articleRepo.UpdateExtractedContent(article.ID, extractedContent, now)
	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}

	slog.Debug("Content extracted successfully", "article_id", article.ID, "url", article.ResolvedURL, "content_length", len(extractedContent))
	return nil
}

// backfillMetadata fills in title and description from the article page when
// the feed entry left them empty. Extraction failures here are not fatal.
func (t *ExtractContentTask) backfillMetadata(article database.ArticleForExtraction, data []byte) {
	if article.Title != "" && article.Description != "" {
		return
	}

	meta, err := t.metadataExtractor.Run(data)
	if err != nil {
		slog.Debug("Failed to extract page metadata", "article_id", article.ID, "error", err)
		return
	}

	if err := t.articleRepo.UpdateArticleMetadata(article.ID, meta.Title, meta.Description); err != nil {
		slog.Error("Failed to backfill article metadata", "article_id", article.ID, "error", err)
	}
}

func (t *ExtractContentTask) fetchArticlePage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.SourceConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
