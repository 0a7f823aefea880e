package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dpetrov/link-comb/app/database"
	"github.com/dpetrov/link-comb/app/feed"
)

type fakeSourceRepo struct {
	database.SourceRepository

	upserted map[string]string
	metadata map[string]string
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{
		upserted: make(map[string]string),
		metadata: make(map[string]string),
	}
}

func (r *fakeSourceRepo) UpsertSource(sourceName, feedURL string) error {
	r.upserted[sourceName] = feedURL
	return nil
}

func (r *fakeSourceRepo) UpdateSourceMetadata(sourceName, title, link, description, imageURL, language string, nextFetch time.Time) error {
	r.metadata[sourceName] = title
	return nil
}

type upsertRecordingRepo struct {
	*fakeArticleRepo

	articles []database.NewArticle
}

func (r *upsertRecordingRepo) UpsertArticle(sourceName string, article database.NewArticle) error {
	r.articles = append(r.articles, article)
	return nil
}

const taskTestFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Aggregated News</title>
<link>https://news.example.com</link>
<item>
<title>First story</title>
<link>https://news.example.com/rss/articles/CBMiSGh0dHA?oc=5</link>
<guid>story-1</guid>
</item>
<item>
<title>No link, dropped</title>
<guid>story-2</guid>
</item>
</channel>
</rss>`

func TestProcessSourceTask_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(taskTestFeed))
	}))
	defer srv.Close()

	sourceRepo := newFakeSourceRepo()
	articleRepo := &upsertRecordingRepo{fakeArticleRepo: newFakeArticleRepo()}

	config := &feed.Config{
		Name: "newsline",
		URL:  srv.URL,
		Settings: feed.ConfigSettings{
			Enabled:         true,
			RefreshInterval: 3600,
			Timeout:         5,
		},
	}

	task := NewProcessSourceTask("newsline", config, srv.Client(), feed.NewParser(), sourceRepo, articleRepo, "test-agent")

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if sourceRepo.metadata["newsline"] != "Aggregated News" {
		t.Errorf("Expected source metadata stored, got %v", sourceRepo.metadata)
	}

	if len(articleRepo.articles) != 1 {
		t.Fatalf("Expected 1 stored article, got %d", len(articleRepo.articles))
	}
	if articleRepo.articles[0].WrappedURL != "https://news.example.com/rss/articles/CBMiSGh0dHA?oc=5" {
		t.Errorf("Expected wrapped URL preserved, got %q", articleRepo.articles[0].WrappedURL)
	}
}

func TestProcessSourceTask_DisabledSource(t *testing.T) {
	sourceRepo := newFakeSourceRepo()
	articleRepo := &upsertRecordingRepo{fakeArticleRepo: newFakeArticleRepo()}

	config := &feed.Config{
		Name:     "off",
		URL:      "https://unreachable.example.com/rss",
		Settings: feed.ConfigSettings{Enabled: false},
	}

	task := NewProcessSourceTask("off", config, http.DefaultClient, feed.NewParser(), sourceRepo, articleRepo, "test-agent")

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed for disabled source: %v", err)
	}
	if len(articleRepo.articles) != 0 {
		t.Errorf("Expected no articles for disabled source, got %d", len(articleRepo.articles))
	}
}
