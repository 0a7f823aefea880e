package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ ArticleRepository = (*ArticleRepo)(nil)

// ArticleRepo handles database operations for articles, including the retry
// bookkeeping the resolution pipeline computes transitions over.
type ArticleRepo struct {
	db *DB
}

func NewArticleRepo(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

// UpsertArticle stores an ingested feed item as a pending article. Re-seen
// items refresh title and description but never touch resolution state.
func (r *ArticleRepo) UpsertArticle(sourceName string, article NewArticle) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO articles (
			id, source_name, guid, wrapped_url, title, description,
			published_at, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_name, guid) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			updated_at = excluded.updated_at
	`, uuid.NewString(), sourceName, article.GUID, article.WrappedURL,
		article.Title, article.Description, article.PublishedAt.UTC(),
		ArticleStatusPending, now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert article: %w", err)
	}

	return nil
}

// GetPendingArticles returns articles that have never been attempted.
func (r *ArticleRepo) GetPendingArticles(limit int) ([]PendingArticle, error) {
	rows, err := r.db.Query(`
		SELECT id, wrapped_url, retry_count, last_error
		FROM articles
		WHERE status = ? AND next_retry_at IS NULL
		ORDER BY created_at
		LIMIT ?
	`, ArticleStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending articles: %w", err)
	}

	return scanPendingArticles(rows)
}

// GetDueForRetry returns deferred articles whose next retry time has passed.
func (r *ArticleRepo) GetDueForRetry(now time.Time, limit int) ([]PendingArticle, error) {
	rows, err := r.db.Query(`
		SELECT id, wrapped_url, retry_count, last_error
		FROM articles
		WHERE status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?
		ORDER BY next_retry_at
		LIMIT ?
	`, ArticleStatusPending, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles due for retry: %w", err)
	}

	return scanPendingArticles(rows)
}

func scanPendingArticles(rows *sql.Rows) ([]PendingArticle, error) {
	defer rows.Close()

	var articles []PendingArticle
	for rows.Next() {
		var a PendingArticle
		if err := rows.Scan(&a.ID, &a.WrappedURL, &a.RetryCount, &a.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan pending article: %w", err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending articles: %w", err)
	}

	return articles, nil
}

// MarkResolved records a successful resolution and clears retry bookkeeping.
func (r *ArticleRepo) MarkResolved(articleID, canonicalURL string) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET status = ?, resolved_url = ?, next_retry_at = NULL, last_error = '', updated_at = ?
		WHERE id = ?
	`, ArticleStatusResolved, canonicalURL, time.Now().UTC(), articleID)

	if err != nil {
		return fmt.Errorf("failed to mark article resolved: %w", err)
	}

	return nil
}

// MarkRetry applies a scheduled-retry transition. The update is conditional
// on the previous retry count, so two schedulers racing on the same article
// cannot double-apply a transition; the loser's update matches zero rows.
func (r *ArticleRepo) MarkRetry(articleID, lastError string, retryCount int, nextRetryAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET retry_count = ?, next_retry_at = ?, last_error = ?, updated_at = ?
		WHERE id = ? AND status = ? AND retry_count = ? - 1
	`, retryCount, nextRetryAt.UTC(), lastError, time.Now().UTC(),
		articleID, ArticleStatusPending, retryCount)

	if err != nil {
		return fmt.Errorf("failed to mark article for retry: %w", err)
	}

	return nil
}

// MarkBlocked records a safety-gate rejection. Terminal, never retried.
func (r *ArticleRepo) MarkBlocked(articleID, lastError string) error {
	return r.terminate(articleID, ArticleStatusBlocked, lastError)
}

// MarkPermanentlyFailed records a permanent resolution failure. Terminal.
func (r *ArticleRepo) MarkPermanentlyFailed(articleID, lastError string) error {
	return r.terminate(articleID, ArticleStatusFailed, lastError)
}

func (r *ArticleRepo) terminate(articleID, status, lastError string) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET status = ?, next_retry_at = NULL, last_error = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, status, lastError, time.Now().UTC(), articleID, ArticleStatusPending)

	if err != nil {
		return fmt.Errorf("failed to mark article %s: %w", status, err)
	}

	return nil
}

// GetResolvedArticles returns resolved articles for a source, newest first.
func (r *ArticleRepo) GetResolvedArticles(sourceName string, limit int) ([]Article, error) {
	rows, err := r.db.Query(`
		SELECT id, source_name, guid, wrapped_url, resolved_url, title, description,
		       content, published_at, status, retry_count, next_retry_at, last_error,
		       content_extracted_at, extraction_status, extraction_error,
		       created_at, updated_at
		FROM articles
		WHERE source_name = ? AND status = ?
		ORDER BY published_at DESC
		LIMIT ?
	`, sourceName, ArticleStatusResolved, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get resolved articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		var nextRetryAt, extractedAt sql.NullTime

		err := rows.Scan(
			&a.ID, &a.SourceName, &a.GUID, &a.WrappedURL, &a.ResolvedURL,
			&a.Title, &a.Description, &a.Content, &a.PublishedAt, &a.Status,
			&a.RetryCount, &nextRetryAt, &a.LastError,
			&extractedAt, &a.ExtractionStatus, &a.ExtractionError,
			&a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}

		if nextRetryAt.Valid {
			a.NextRetryAt = &nextRetryAt.Time
		}
		if extractedAt.Valid {
			a.ContentExtractedAt = &extractedAt.Time
		}

		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepo) GetArticleCount(sourceName string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM articles WHERE source_name = ?", sourceName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

func (r *ArticleRepo) GetArticleStats(sourceName string) (ArticleStats, error) {
	var stats ArticleStats
	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'resolved' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'blocked' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END)
		FROM articles
		WHERE source_name = ?
	`, sourceName).Scan(&stats.Total, &stats.Pending, &stats.Resolved, &stats.Blocked, &stats.Failed)

	if err != nil {
		return ArticleStats{}, fmt.Errorf("failed to get article stats: %w", err)
	}

	return stats, nil
}

// GetArticlesForExtraction returns resolved articles whose content has not
// been extracted yet.
func (r *ArticleRepo) GetArticlesForExtraction(sourceName string, limit int) ([]ArticleForExtraction, error) {
	rows, err := r.db.Query(`
		SELECT id, resolved_url, title, description
		FROM articles
		WHERE source_name = ? AND status = ? AND extraction_status = ?
		ORDER BY published_at DESC
		LIMIT ?
	`, sourceName, ArticleStatusResolved, ExtractionStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles for extraction: %w", err)
	}
	defer rows.Close()

	var articles []ArticleForExtraction
	for rows.Next() {
		var a ArticleForExtraction
		if err := rows.Scan(&a.ID, &a.ResolvedURL, &a.Title, &a.Description); err != nil {
			return nil, fmt.Errorf("failed to scan extraction row: %w", err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extraction rows: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepo) UpdateExtractedContent(articleID, content string, extractedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET content = ?, extraction_status = ?, content_extracted_at = ?,
		    extraction_error = '', updated_at = ?
		WHERE id = ?
	`, content, ExtractionStatusSuccess, extractedAt.UTC(), time.Now().UTC(), articleID)

	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}

	return nil
}

func (r *ArticleRepo) UpdateExtractionStatus(articleID, status string, extractedAt *time.Time, errorMsg string) error {
	var at interface{}
	if extractedAt != nil {
		at = extractedAt.UTC()
	}

	_, err := r.db.Exec(`
		UPDATE articles
		SET extraction_status = ?, content_extracted_at = ?, extraction_error = ?, updated_at = ?
		WHERE id = ?
	`, status, at, errorMsg, time.Now().UTC(), articleID)

	if err != nil {
		return fmt.Errorf("failed to update extraction status: %w", err)
	}

	return nil
}

// UpdateArticleMetadata backfills title and description from the article
// page when the feed item carried none. Empty values leave the column alone.
func (r *ArticleRepo) UpdateArticleMetadata(articleID, title, description string) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET title = CASE WHEN ? != '' THEN ? ELSE title END,
		    description = CASE WHEN ? != '' THEN ? ELSE description END,
		    updated_at = ?
		WHERE id = ?
	`, title, title, description, description, time.Now().UTC(), articleID)

	if err != nil {
		return fmt.Errorf("failed to update article metadata: %w", err)
	}

	return nil
}
