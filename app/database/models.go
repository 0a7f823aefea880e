package database

import (
	"time"
)

// Article resolution statuses. Blocked and failed are terminal; a pending
// article with next_retry_at set is deferred, not dead.
const (
	ArticleStatusPending  = "pending"
	ArticleStatusResolved = "resolved"
	ArticleStatusBlocked  = "blocked"
	ArticleStatusFailed   = "failed"
)

// Content extraction statuses.
const (
	ExtractionStatusPending = "pending"
	ExtractionStatusSuccess = "success"
	ExtractionStatusFailed  = "failed"
)

type Source struct {
	ID            string // Database UUID
	Name          string // Configuration source identifier derived from filename
	FeedURL       string // Aggregator feed URL from configuration
	Link          string // Homepage URL from the feed's <link> element
	Title         string
	Description   string
	ImageURL      string
	Language      string
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Article struct {
	ID          string
	SourceName  string
	GUID        string
	WrappedURL  string // Obfuscated link as received from the aggregator
	ResolvedURL string // Canonical destination, set once resolution succeeds
	Title       string
	Description string
	Content     string
	PublishedAt time.Time
	Status      string

	// Retry bookkeeping, owned by this store; the resolver policy only
	// computes transitions over it.
	RetryCount  int
	NextRetryAt *time.Time
	LastError   string

	ContentExtractedAt *time.Time
	ExtractionStatus   string
	ExtractionError    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PendingArticle is the slim projection the resolution task works on.
type PendingArticle struct {
	ID         string
	WrappedURL string
	RetryCount int
	LastError  string
}

// ArticleForExtraction is the slim projection the content extraction task works on.
type ArticleForExtraction struct {
	ID          string
	ResolvedURL string
	Title       string
	Description string
}

type ArticleStats struct {
	Total    int
	Pending  int
	Resolved int
	Blocked  int
	Failed   int
}
