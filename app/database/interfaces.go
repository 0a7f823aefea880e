package database

import (
	"time"
)

// NewArticle carries a freshly ingested feed item into the store. The link
// is still wrapped; resolution happens later.
type NewArticle struct {
	GUID        string
	WrappedURL  string
	Title       string
	Description string
	PublishedAt time.Time
}

type SourceRepository interface {
	GetSource(sourceName string) (*Source, error)
	GetSourceCount() (int, error)

	UpsertSource(sourceName, feedURL string) error
	UpdateSourceMetadata(sourceName, title, link, description, imageURL, language string, nextFetch time.Time) error
}

type ArticleRepository interface {
	UpsertArticle(sourceName string, article NewArticle) error
	GetResolvedArticles(sourceName string, limit int) ([]Article, error)
	GetArticleCount(sourceName string) (int, error)
	GetArticleStats(sourceName string) (ArticleStats, error)

	GetPendingArticles(limit int) ([]PendingArticle, error)
	GetDueForRetry(now time.Time, limit int) ([]PendingArticle, error)
	MarkResolved(articleID, canonicalURL string) error
	MarkRetry(articleID, lastError string, retryCount int, nextRetryAt time.Time) error
	MarkBlocked(articleID, lastError string) error
	MarkPermanentlyFailed(articleID, lastError string) error

	GetArticlesForExtraction(sourceName string, limit int) ([]ArticleForExtraction, error)
	UpdateExtractedContent(articleID, content string, extractedAt time.Time) error
	UpdateExtractionStatus(articleID, status string, extractedAt *time.Time, errorMsg string) error
	UpdateArticleMetadata(articleID, title, description string) error
}
