package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dpetrov/link-comb/app/database"
	"github.com/dpetrov/link-comb/app/resolver"
)

// ResolveArticlesTask drains one batch of unresolved articles: fresh pending
// ones first, then those whose retry backoff has elapsed. Each article gets
// exactly one resolution attempt per task run; failures go back through the
// retry policy.
type ResolveArticlesTask struct {
	Task
	articleResolver ArticleResolver
	policy          *resolver.RetryPolicy
	articleRepo     database.ArticleRepository
	batchSize       int
}

func NewResolveArticlesTask(articleResolver ArticleResolver, policy *resolver.RetryPolicy, articleRepo database.ArticleRepository, batchSize int) *ResolveArticlesTask {
	return &ResolveArticlesTask{
		Task:            NewTask(TaskTypeResolveArticles, ""),
		articleResolver: articleResolver,
		policy:          policy,
		articleRepo:     articleRepo,
		batchSize:       batchSize,
	}
}

func (t *ResolveArticlesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := time.Now().UTC()

	pending, err := t.articleRepo.GetPendingArticles(t.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending articles: %w", err)
	}

	due, err := t.articleRepo.GetDueForRetry(now, t.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get articles due for retry: %w", err)
	}

	articles := append(pending, due...)
	if len(articles) == 0 {
		slog.Debug("No articles awaiting resolution")
		return nil
	}

	resolvedCount := 0
	blockedCount := 0
	retriedCount := 0
	failedCount := 0

	for _, article := range articles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		outcome := t.articleResolver.Decode(ctx, article.WrappedURL)

		switch outcome.Status {
		case resolver.StatusResolved:
			if err := t.articleRepo.MarkResolved(article.ID, outcome.URL); err != nil {
				slog.Error("Failed to mark article resolved", "article_id", article.ID, "error", err)
				continue
			}
			resolvedCount++

		case resolver.StatusBlocked:
			if err := t.articleRepo.MarkBlocked(article.ID, errText(outcome.Err)); err != nil {
				slog.Error("Failed to mark article blocked", "article_id", article.ID, "error", err)
				continue
			}
			blockedCount++

		case resolver.StatusFailed:
			state := resolver.RetryState{
				RetryCount: article.RetryCount,
				LastError:  article.LastError,
			}
			decision := t.policy.Next(time.Now().UTC(), state, outcome.Err)

			if decision.Action == resolver.ActionSchedule {
				err := t.articleRepo.MarkRetry(article.ID, decision.LastError, decision.RetryCount, decision.NextRetryAt)
				if err != nil {
					slog.Error("Failed to schedule article retry", "article_id", article.ID, "error", err)
					continue
				}
				retriedCount++
			} else {
				err := t.articleRepo.MarkPermanentlyFailed(article.ID, decision.LastError)
				if err != nil {
					slog.Error("Failed to mark article failed", "article_id", article.ID, "error", err)
					continue
				}
				failedCount++
			}
		}
	}

	slog.Info("Task completed",
		"type", "ResolveArticles",
		"duration", t.GetDuration(),
		"total", len(articles),
		"resolved", resolvedCount,
		"blocked", blockedCount,
		"retried", retriedCount,
		"failed", failedCount)

	return nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
