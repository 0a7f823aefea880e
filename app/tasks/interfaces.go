package tasks

import (
	"context"

	"github.com/dpetrov/link-comb/app/resolver"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing.
// This interface provides task queue management, worker pool control, and
// periodic enqueueing of source processing, article resolution, and content
// extraction work.
// Example usage:
//
//	scheduler := NewScheduler(configCache, sourceRepo, articleRepo, httpClient, parser, decoder, policy, metadataExtractor, contentExtractor)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewProcessSourceTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// ArticleResolver turns a wrapped aggregator link into a resolution outcome.
type ArticleResolver interface {
	Decode(ctx context.Context, wrappedLink string) resolver.Outcome
}
