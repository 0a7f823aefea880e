package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dpetrov/link-comb/app/cfg"
	"github.com/dpetrov/link-comb/app/database"
	"github.com/dpetrov/link-comb/app/feed"
	"github.com/dpetrov/link-comb/app/resolver"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// resolveBatchSize bounds how many unresolved articles a single
// ResolveArticlesTask picks up. The rate limiter serializes outbound
// requests, so a larger batch only lengthens one task's runtime.
const resolveBatchSize = 50

type Scheduler struct {
	sourceRepo        database.SourceRepository
	articleRepo       database.ArticleRepository
	configCache       *feed.ConfigCache
	httpClient        *http.Client
	parser            *feed.Parser
	articleResolver   ArticleResolver
	retryPolicy       *resolver.RetryPolicy
	urlValidator      resolver.URLValidator
	metadataExtractor *feed.MetadataExtractor
	contentExtractor  *feed.ContentExtractor
	userAgent         string
	interval          time.Duration
	workerCount       int
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	taskQueue         chan TaskInterface
}

func NewScheduler(configCache *feed.ConfigCache, sourceRepo database.SourceRepository,
	articleRepo database.ArticleRepository, httpClient *http.Client, parser *feed.Parser,
	articleResolver ArticleResolver, retryPolicy *resolver.RetryPolicy, urlValidator resolver.URLValidator,
	metadataExtractor *feed.MetadataExtractor, contentExtractor *feed.ContentExtractor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sourceRepo:        sourceRepo,
		articleRepo:       articleRepo,
		configCache:       configCache,
		httpClient:        httpClient,
		parser:            parser,
		articleResolver:   articleResolver,
		retryPolicy:       retryPolicy,
		urlValidator:      urlValidator,
		metadataExtractor: metadataExtractor,
		contentExtractor:  contentExtractor,
		userAgent:         cfg.UserAgent,
		interval:          time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:       cfg.WorkerCount,
		ctx:               ctx,
		cancel:            cancel,
		taskQueue:         make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	sourceConfigs := s.configCache.GetConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Processing source configurations", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		syncTask := NewSyncSourceConfigTask(sourceConfig.Name, sourceConfig, s.sourceRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSourceConfigTask", "source", sourceConfig.Name, "error", err)
			continue
		}

		if !sourceConfig.Settings.Enabled {
			slog.Debug("Source disabled, skipping ProcessSourceTask", "source", sourceConfig.Name)
			continue
		}

		processTask := NewProcessSourceTask(sourceConfig.Name, sourceConfig, s.httpClient, s.parser, s.sourceRepo, s.articleRepo, s.userAgent)
		if err := s.EnqueueTask(processTask); err != nil {
			slog.Warn("Failed to enqueue ProcessSourceTask", "source", sourceConfig.Name, "error", err)
		}
	}

	s.enqueueResolveTask()
}

func (s *Scheduler) enqueueTasks() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	slog.Debug("Processing enabled source configurations for task scheduling", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		source, err := s.sourceRepo.GetSource(sourceConfig.Name)
		if err != nil {
			slog.Warn("Failed to get source from database, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}
		if source == nil {
			slog.Warn("Source not found in database, skipping", "source", sourceConfig.Name)
			continue
		}

		now := time.Now().UTC()
		if source.NextFetchAt != nil && source.NextFetchAt.After(now) {
			slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name, "next_fetch_at", source.NextFetchAt)
		} else {
			processTask := NewProcessSourceTask(sourceConfig.Name, sourceConfig, s.httpClient, s.parser, s.sourceRepo, s.articleRepo, s.userAgent)
			if err := s.EnqueueTask(processTask); err != nil {
				slog.Warn("Failed to enqueue ProcessSourceTask", "source", sourceConfig.Name, "error", err)
			}
		}

		if sourceConfig.Settings.ExtractContent {
			extractTask := NewExtractContentTask(sourceConfig.Name, sourceConfig, s.httpClient, s.urlValidator, s.metadataExtractor, s.contentExtractor, s.articleRepo, s.userAgent)
			if err := s.EnqueueTask(extractTask); err != nil {
				slog.Warn("Failed to enqueue ExtractContentTask", "source", sourceConfig.Name, "error", err)
			}
		}
	}

	s.enqueueResolveTask()
}

// enqueueResolveTask schedules one cross-source resolution batch. A single
// task per tick keeps the outbound rate limiter meaningful.
func (s *Scheduler) enqueueResolveTask() {
	resolveTask := NewResolveArticlesTask(s.articleResolver, s.retryPolicy, s.articleRepo, resolveBatchSize)
	if err := s.EnqueueTask(resolveTask); err != nil {
		slog.Warn("Failed to enqueue ResolveArticlesTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
