package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/video-comb/app/content"
	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/tasks"
)

func NewHandler(counter CounterInterface, searcher SearcherInterface, catalog *feed.Catalog,
	scheduler tasks.TaskSchedulerInterface, defaultLimit int) *Handler {
	return &Handler{
		counter:      counter,
		searcher:     searcher,
		catalog:      catalog,
		scheduler:    scheduler,
		defaultLimit: defaultLimit,
	}
}

var actions = map[string]tasks.TaskType{
	"create": tasks.TaskTypeCreatePosts,
	"update": tasks.TaskTypeUpdatePosts,
	"clean":  tasks.TaskTypeCleanPosts,
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().Format(time.RFC3339),
		"feeds":     h.catalog.Len(),
		"providers": h.searcher.Origins(),
	}

	posts, err := h.counter.CountPosts(c.Request.Context(), content.PostFilter{})
	if err != nil {
		slog.Error("Database error", "operation", "count_posts", "error", err)
		health["status"] = "unhealthy"
		health["error"] = "database unavailable"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	feedPosts, err := h.counter.CountFeedPosts(c.Request.Context(), content.FeedPostFilter{})
	if err != nil {
		slog.Error("Database error", "operation", "count_feed_posts", "error", err)
		health["status"] = "unhealthy"
		health["error"] = "database unavailable"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	health["status"] = "healthy"
	health["posts"] = posts
	health["feed_posts"] = feedPosts
	c.JSON(http.StatusOK, health)
}

func (h *Handler) SearchVideos(c *gin.Context) {
	title := c.Query("title")

	videos, err := h.searcher.Search(c.Request.Context(), title)
	if err != nil {
		writeError(c, "search", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":  title,
		"count":  len(videos),
		"videos": videos,
	})
}

func (h *Handler) GetVideo(c *gin.Context) {
	p, err := h.searcher.Get(c.Param("origin"))
	if err != nil {
		writeError(c, "get_video", err)
		return
	}

	v, err := p.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "get_video", err)
		return
	}

	c.JSON(http.StatusOK, v)
}

func (h *Handler) CheckAccess(c *gin.Context) {
	origin := c.Param("origin")
	p, err := h.searcher.Get(origin)
	if err != nil {
		writeError(c, "check_access", err)
		return
	}

	useCache := c.Query("cache") == "1" || c.Query("cache") == "true"
	ok, err := p.CheckAccess(c.Request.Context(), useCache)
	if err != nil {
		writeError(c, "check_access", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"origin": origin,
		"access": ok,
	})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	type feedInfo struct {
		feed.Feed
		Enabled bool `json:"enabled"`
	}

	feeds := h.catalog.Feeds()
	out := make([]feedInfo, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, feedInfo{Feed: f, Enabled: h.catalog.IsEnabled(f)})
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": out,
		"count": len(out),
	})
}

func (h *Handler) StartRun(c *gin.Context) {
	origin := c.Param("origin")
	action := c.Param("action")

	taskType, ok := actions[action]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action " + action})
		return
	}

	if _, err := h.searcher.Get(origin); err != nil {
		writeError(c, "start_run", err)
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	run, err := h.scheduler.Submit(taskType, origin, limit)
	if errors.Is(err, tasks.ErrQueueFull) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Failed to submit run", "source", origin, "type", taskType, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	slog.Info("Run submitted", "id", run.ID, "source", origin, "type", taskType, "limit", limit)
	c.JSON(http.StatusAccepted, run.Status())
}

func (h *Handler) ListRuns(c *gin.Context) {
	runs := h.scheduler.Runs().List()
	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	run, ok := h.scheduler.Runs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run.Status())
}

// StreamRun sends progress events of the run's current attempt as server
// sent events. The stream starts with the latest event and ends after the
// attempt's terminal one.
func (h *Handler) StreamRun(c *gin.Context) {
	run, ok := h.scheduler.Runs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	events, cancel := run.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("progress", e)
			return !e.Terminal()
		case <-ctx.Done():
			return false
		}
	})
}

// writeError maps provider error kinds onto HTTP statuses.
func writeError(c *gin.Context, operation string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, provider.ErrEmptyQuery),
		errors.Is(err, provider.ErrQueryTooShort),
		errors.Is(err, provider.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, provider.ErrNotFound),
		errors.Is(err, provider.ErrUnknownProvider):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrUnsupported):
		status = http.StatusNotImplemented
	case errors.Is(err, provider.ErrInvalidToken),
		errors.Is(err, provider.ErrUnexpectedResponse):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "error", err)
	}

	kind := "internal"
	if k := provider.Kind(err); k != nil {
		kind = k.Error()
	} else if errors.Is(err, provider.ErrUnknownProvider) {
		kind = provider.ErrUnknownProvider.Error()
	}

	c.JSON(status, gin.H{
		"error":   kind,
		"message": err.Error(),
	})
}
