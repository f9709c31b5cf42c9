package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/content-hub/app/content"
	"github.com/lysyi3m/content-hub/app/ingest"
	"github.com/lysyi3m/content-hub/app/query"
)

const recentRunsLimit = 10

func NewHandler(runner IngestRunner, queries ContentQuerier, stats StatsReader, db Pinger, feedInfo FeedInfo, version string) *Handler {
	return &Handler{
		runner:   runner,
		queries:  queries,
		stats:    stats,
		db:       db,
		feedInfo: feedInfo,
		version:  version,
	}
}

// WithLockHealth adds the distributed lock backend to the health report.
func (h *Handler) WithLockHealth(lock HealthReporter) *Handler {
	h.lock = lock
	return h
}

func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	result, err := h.runner.Run(c.Request.Context(), ingest.Request{
		UpdateDB:    req.UpdateDB,
		Since:       req.Since,
		TriggeredBy: "api",
	})
	if errors.Is(err, content.ErrRunInProgress) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Ingestion already in progress"})
		return
	}
	if err != nil {
		slog.Error("Ingestion request failed", "run_id", result.RunID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Ingestion failed", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, IngestResponse{
		Success:        true,
		RunID:          result.RunID,
		DryRun:         result.DryRun,
		ItemsFetched:   result.ItemsFetched,
		ItemsProcessed: result.ItemsProcessed,
		ItemsFailed:    result.ItemsFailed,
		SourcesFailed:  result.SourcesFailed,
	})
}

func (h *Handler) ListContent(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid page parameter", Details: err.Error()})
			return
		}
		page = parsed
	}

	result, err := h.queries.FetchContent(c.Request.Context(), page, c.Query("contentType"), c.Query("tag"))
	if errors.Is(err, query.ErrInvalidQuery) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query", Details: err.Error()})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "fetch_content", "page", page, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetContent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid content id"})
		return
	}

	entry, err := h.queries.GetContent(c.Request.Context(), id)
	if errors.Is(err, content.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Content not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_content", "content_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		slog.Error("Database error", "operation", "ping", "error", err)
		health["status"] = "unavailable"
		health["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	if h.lock != nil {
		health["lock"] = h.lock.Health(c.Request.Context())
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := h.stats.CountByType(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "count_by_type", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Database error"})
		return
	}

	byType := make(map[string]int, len(content.Types))
	total := 0
	for _, t := range content.Types {
		byType[string(t)] = counts[t]
		total += counts[t]
	}

	stats := map[string]interface{}{
		"items": map[string]interface{}{
			"total":   total,
			"by_type": byType,
		},
	}

	if tags, err := h.stats.CountTags(ctx); err == nil {
		stats["tags"] = tags
	}

	if lastFetch, err := h.stats.GetLastFetch(ctx); err == nil && lastFetch != nil {
		stats["last_fetch"] = lastFetch.Format(time.RFC3339)
	}

	if runs, err := h.stats.ListRecentRuns(ctx, recentRunsLimit); err == nil {
		stats["recent_runs"] = runs
	} else {
		slog.Warn("Failed to list recent ingestion runs", "error", err)
	}

	c.JSON(http.StatusOK, stats)
}
