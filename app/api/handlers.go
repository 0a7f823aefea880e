package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dpetrov/link-comb/app/cfg"
	"github.com/dpetrov/link-comb/app/database"
	"github.com/dpetrov/link-comb/app/feed"
	"github.com/dpetrov/link-comb/app/resolver"
	"github.com/dpetrov/link-comb/app/tasks"
)

func NewHandler(configCache *feed.ConfigCache, sourceRepo database.SourceRepository,
	articleRepo database.ArticleRepository, articleResolver tasks.ArticleResolver,
	httpClient *http.Client, parser *feed.Parser,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		sourceRepo:      sourceRepo,
		articleRepo:     articleRepo,
		generator:       feed.NewGenerator(),
		configCache:     configCache,
		articleResolver: articleResolver,
		httpClient:      httpClient,
		parser:          parser,
		userAgent:       cfg.Get().UserAgent,
		scheduler:       scheduler,
	}
}

// GetFeed serves a source's feed rebuilt from resolved articles. Articles
// still pending resolution are not included.
func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	source, err := h.sourceRepo.GetSource(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if source == nil {
		slog.Error("Source not found in database", "source", name)
		c.Status(http.StatusNotFound)
		return
	}

	articles, err := h.articleRepo.GetResolvedArticles(name, sourceConfig.Settings.MaxItems)
	if err != nil {
		slog.Error("Database error", "operation", "get_articles", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(*source, articles)
	if err != nil {
		slog.Error("RSS generation error", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Articles", strconv.Itoa(len(articles)))
	c.Header("X-Feed-Source", name)
	c.Header("X-Last-Updated", source.UpdatedAt.Format(time.RFC3339))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	totals := database.ArticleStats{}
	sources := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		stats, err := h.articleRepo.GetArticleStats(sourceConfig.Name)
		if err != nil {
			slog.Error("Database error", "operation", "get_article_stats", "source", sourceConfig.Name, "error", err)
			continue
		}

		totals.Total += stats.Total
		totals.Pending += stats.Pending
		totals.Resolved += stats.Resolved
		totals.Blocked += stats.Blocked
		totals.Failed += stats.Failed

		sources = append(sources, map[string]interface{}{
			"name":     sourceConfig.Name,
			"enabled":  sourceConfig.Settings.Enabled,
			"total":    stats.Total,
			"pending":  stats.Pending,
			"resolved": stats.Resolved,
			"blocked":  stats.Blocked,
			"failed":   stats.Failed,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"articles": map[string]interface{}{
			"total":    totals.Total,
			"pending":  totals.Pending,
			"resolved": totals.Resolved,
			"blocked":  totals.Blocked,
			"failed":   totals.Failed,
		},
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"title":            "",
			"enabled":          sourceConfig.Settings.Enabled,
			"max_items":        sourceConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"extract_content":  sourceConfig.Settings.ExtractContent,
		}

		if source, err := h.sourceRepo.GetSource(sourceConfig.Name); err == nil && source != nil {
			sourceInfo["title"] = source.Title
			sourceInfo["last_fetched_at"] = source.LastFetchedAt
			sourceInfo["next_fetch_at"] = source.NextFetchAt
			sourceInfo["updated_at"] = source.UpdatedAt
		}

		if articleCount, err := h.articleRepo.GetArticleCount(sourceConfig.Name); err == nil {
			sourceInfo["article_count"] = articleCount
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIGetSourceDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	source, err := h.sourceRepo.GetSource(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if source == nil {
		slog.Error("Source not found in database", "source", name)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found in database"})
		return
	}

	details := map[string]interface{}{
		"name":             name,
		"url":              sourceConfig.URL,
		"title":            source.Title,
		"enabled":          sourceConfig.Settings.Enabled,
		"max_items":        sourceConfig.Settings.MaxItems,
		"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(sourceConfig.Settings.Timeout) * time.Second).String(),
		"extract_content":  sourceConfig.Settings.ExtractContent,
	}

	details["database"] = map[string]interface{}{
		"id":              source.ID,
		"name":            source.Name,
		"last_fetched_at": source.LastFetchedAt,
		"next_fetch_at":   source.NextFetchAt,
		"created_at":      source.CreatedAt,
		"updated_at":      source.UpdatedAt,
	}

	if stats, err := h.articleRepo.GetArticleStats(name); err == nil {
		details["articles"] = map[string]interface{}{
			"total":    stats.Total,
			"pending":  stats.Pending,
			"resolved": stats.Resolved,
			"blocked":  stats.Blocked,
			"failed":   stats.Failed,
		}
	}

	c.JSON(http.StatusOK, details)
}

// APIRefreshSource reloads a source's configuration and enqueues an immediate
// fetch, bypassing the refresh interval.
func (h *Handler) APIRefreshSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	_, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncTask := tasks.NewSyncSourceConfigTask(name, sourceConfig, h.sourceRepo)
	if err := h.scheduler.EnqueueTask(syncTask); err != nil {
		slog.Error("Error enqueueing sync task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	processTask := tasks.NewProcessSourceTask(name, sourceConfig, h.httpClient, h.parser, h.sourceRepo, h.articleRepo, h.userAgent)
	if err := h.scheduler.EnqueueTask(processTask); err != nil {
		slog.Error("Error enqueueing process task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue process task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"source": gin.H{
			"name": name,
			"url":  sourceConfig.URL,
		},
		"tasks": []gin.H{
			{"id": syncTask.ID, "type": syncTask.Type},
			{"id": processTask.ID, "type": processTask.Type},
		},
	})
}

// APIResolveURL runs a single wrapped URL through the decoder without
// touching the database. Intended for probing and debugging.
func (h *Handler) APIResolveURL(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid 'url' field"})
		return
	}

	outcome := h.articleResolver.Decode(c.Request.Context(), req.URL)

	response := gin.H{
		"status": outcome.Status.String(),
	}
	if outcome.URL != "" {
		response["resolved_url"] = outcome.URL
	}
	if outcome.Err != nil {
		response["error"] = outcome.Err.Error()
	}

	switch outcome.Status {
	case resolver.StatusResolved:
		c.JSON(http.StatusOK, response)
	case resolver.StatusBlocked:
		c.JSON(http.StatusUnprocessableEntity, response)
	default:
		c.JSON(http.StatusBadGateway, response)
	}
}
