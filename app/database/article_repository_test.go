package database

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) (*DB, *SourceRepo, *ArticleRepo) {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	sourceRepo := NewSourceRepo(db)
	if err := sourceRepo.UpsertSource("newsline", "https://news.example.com/rss"); err != nil {
		t.Fatalf("Failed to register source: %v", err)
	}

	return db, sourceRepo, NewArticleRepo(db)
}

func insertPending(t *testing.T, repo *ArticleRepo, guid string) PendingArticle {
	t.Helper()

	err := repo.UpsertArticle("newsline", NewArticle{
		GUID:        guid,
		WrappedURL:  "https://news.example.com/rss/articles/" + guid,
		Title:       "Item " + guid,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Failed to upsert article: %v", err)
	}

	pending, err := repo.GetPendingArticles(100)
	if err != nil {
		t.Fatalf("Failed to list pending articles: %v", err)
	}
	for _, a := range pending {
		if a.WrappedURL == "https://news.example.com/rss/articles/"+guid {
			return a
		}
	}
	t.Fatalf("Article %s not found among pending", guid)
	return PendingArticle{}
}

func TestArticleRepo_UpsertIsIdempotent(t *testing.T) {
	_, _, repo := setupTestDB(t)

	insertPending(t, repo, "guid-1")
	insertPending(t, repo, "guid-1")

	count, err := repo.GetArticleCount("newsline")
	if err != nil {
		t.Fatalf("Failed to count articles: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 article after duplicate upsert, got %d", count)
	}
}

func TestArticleRepo_RetryLifecycle(t *testing.T) {
	_, _, repo := setupTestDB(t)
	article := insertPending(t, repo, "guid-retry")

	nextRetry := time.Now().UTC().Add(-time.Minute)
	if err := repo.MarkRetry(article.ID, "timeout: deadline exceeded", 1, nextRetry); err != nil {
		t.Fatalf("Failed to mark retry: %v", err)
	}

	// Scheduled articles leave the never-attempted set...
	pending, err := repo.GetPendingArticles(100)
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no never-attempted articles, got %d", len(pending))
	}

	// ...and show up once their retry time passes.
	due, err := repo.GetDueForRetry(time.Now().UTC(), 100)
	if err != nil {
		t.Fatalf("Failed to list due articles: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("Expected 1 due article, got %d", len(due))
	}
	if due[0].RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", due[0].RetryCount)
	}
	if due[0].LastError != "timeout: deadline exceeded" {
		t.Errorf("Expected last error preserved, got %q", due[0].LastError)
	}
}

func TestArticleRepo_MarkRetryIsConditional(t *testing.T) {
	_, _, repo := setupTestDB(t)
	article := insertPending(t, repo, "guid-race")

	next := time.Now().UTC().Add(-time.Second)
	if err := repo.MarkRetry(article.ID, "first", 1, next); err != nil {
		t.Fatalf("Failed to mark retry: %v", err)
	}

	// A racing scheduler applying the same transition is a no-op.
	if err := repo.MarkRetry(article.ID, "second", 1, next); err != nil {
		t.Fatalf("Conditional retry update should not error: %v", err)
	}

	due, err := repo.GetDueForRetry(time.Now().UTC(), 100)
	if err != nil {
		t.Fatalf("Failed to list due articles: %v", err)
	}
	if len(due) != 1 || due[0].LastError != "first" {
		t.Errorf("Expected stale transition to be ignored, got %+v", due)
	}
}

func TestArticleRepo_MarkResolvedClearsBookkeeping(t *testing.T) {
	_, _, repo := setupTestDB(t)
	article := insertPending(t, repo, "guid-ok")

	if err := repo.MarkResolved(article.ID, "https://example.com/story"); err != nil {
		t.Fatalf("Failed to mark resolved: %v", err)
	}

	resolved, err := repo.GetResolvedArticles("newsline", 10)
	if err != nil {
		t.Fatalf("Failed to list resolved articles: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("Expected 1 resolved article, got %d", len(resolved))
	}
	if resolved[0].ResolvedURL != "https://example.com/story" {
		t.Errorf("Expected canonical URL stored, got %q", resolved[0].ResolvedURL)
	}
	if resolved[0].NextRetryAt != nil || resolved[0].LastError != "" {
		t.Error("Expected retry bookkeeping cleared on success")
	}
}

func TestArticleRepo_TerminalStatesAreOneWay(t *testing.T) {
	_, _, repo := setupTestDB(t)
	article := insertPending(t, repo, "guid-dead")

	if err := repo.MarkPermanentlyFailed(article.ID, "fetch failed with 404"); err != nil {
		t.Fatalf("Failed to mark failed: %v", err)
	}

	// A late retry transition against a terminal article is ignored.
	if err := repo.MarkRetry(article.ID, "late", 1, time.Now().UTC()); err != nil {
		t.Fatalf("Late retry update should not error: %v", err)
	}

	stats, err := repo.GetArticleStats("newsline")
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Failed != 1 || stats.Pending != 0 {
		t.Errorf("Expected 1 failed, 0 pending, got %+v", stats)
	}

	due, err := repo.GetDueForRetry(time.Now().UTC().Add(time.Hour), 100)
	if err != nil {
		t.Fatalf("Failed to list due articles: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("Terminal article must never come due, got %d", len(due))
	}
}

func TestArticleRepo_ExtractionFlow(t *testing.T) {
	_, _, repo := setupTestDB(t)
	article := insertPending(t, repo, "guid-extract")

	if err := repo.MarkResolved(article.ID, "https://example.com/story"); err != nil {
		t.Fatalf("Failed to mark resolved: %v", err)
	}

	candidates, err := repo.GetArticlesForExtraction("newsline", 10)
	if err != nil {
		t.Fatalf("Failed to list extraction candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 extraction candidate, got %d", len(candidates))
	}

	if err := repo.UpdateExtractedContent(article.ID, "# Story\n\nBody.", time.Now().UTC()); err != nil {
		t.Fatalf("Failed to store extracted content: %v", err)
	}

	candidates, err = repo.GetArticlesForExtraction("newsline", 10)
	if err != nil {
		t.Fatalf("Failed to list extraction candidates: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Expected no candidates after extraction, got %d", len(candidates))
	}

	resolved, err := repo.GetResolvedArticles("newsline", 10)
	if err != nil {
		t.Fatalf("Failed to list resolved articles: %v", err)
	}
	if resolved[0].Content != "# Story\n\nBody." {
		t.Errorf("Expected extracted content stored, got %q", resolved[0].Content)
	}
}
