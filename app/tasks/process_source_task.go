package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dpetrov/link-comb/app/database"
	"github.com/dpetrov/link-comb/app/feed"
)

type ProcessSourceTask struct {
	Task
	SourceConfig *feed.Config
	httpClient   *http.Client
	parser       *feed.Parser
	sourceRepo   database.SourceRepository
	articleRepo  database.ArticleRepository
	userAgent    string
}

func NewProcessSourceTask(sourceName string, sourceConfig *feed.Config, httpClient *http.Client, parser *feed.Parser, sourceRepo database.SourceRepository, articleRepo database.ArticleRepository, userAgent string) *ProcessSourceTask {
	return &ProcessSourceTask{
		Task:         NewTask(TaskTypeProcessSource, sourceName),
		SourceConfig: sourceConfig,
		httpClient:   httpClient,
		parser:       parser,
		sourceRepo:   sourceRepo,
		articleRepo:  articleRepo,
		userAgent:    userAgent,
	}
}

func (t *ProcessSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	data, err := t.fetchFeed(ctx, t.SourceConfig.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	err = t.storeSourceMetadata(metadata)
	if err != nil {
		return fmt.Errorf("failed to store source metadata: %w", err)
	}

	newCount := 0
	for _, item := range items {
		article := database.NewArticle{
			GUID:        item.GUID,
			WrappedURL:  item.Link,
			Title:       item.Title,
			Description: item.Description,
			PublishedAt: item.PublishedAt,
		}

		if err := t.articleRepo.UpsertArticle(t.SourceName, article); err != nil {
			return fmt.Errorf("failed to upsert article: %w", err)
		}
		newCount++
	}

	slog.Info("Task completed",
		"type", "ProcessSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"total", len(items),
		"stored", newCount)

	return nil
}

func (t *ProcessSourceTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.SourceConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (t *ProcessSourceTask) storeSourceMetadata(metadata *feed.Metadata) error {
	now := time.Now().UTC()
	nextFetch := now.Add(time.Duration(t.SourceConfig.Settings.RefreshInterval) * time.Second)

	err := t.sourceRepo.UpdateSourceMetadata(t.SourceName, metadata.Title, metadata.Link, metadata.Description, metadata.ImageURL, metadata.Language, nextFetch)
	if err != nil {
		return fmt.Errorf("failed to update source metadata and next fetch time: %w", err)
	}

	return nil
}
