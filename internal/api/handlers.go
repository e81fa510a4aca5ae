// Package api implements the REST and SSE endpoints for the router.
package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/analytics"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/classify"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/mode"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/orchestrate"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/route"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/sse"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/store"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// promptPreviewLen bounds prompt text in list views.
const promptPreviewLen = 80

// Handlers provides the endpoint handlers.
type Handlers struct {
	store     store.Store
	modes     *mode.Controller
	completer *orchestrate.Completer
	arena     *orchestrate.Arena
	insights  *analytics.Engine
}

// NewHandlers creates a Handlers instance over the given services.
func NewHandlers(st store.Store, modes *mode.Controller, completer *orchestrate.Completer, arena *orchestrate.Arena) *Handlers {
	return &Handlers{
		store:     st,
		modes:     modes,
		completer: completer,
		arena:     arena,
		insights:  analytics.NewEngine(st),
	}
}

// Register mounts all routes on the engine.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	apiGroup := r.Group("/api")
	apiGroup.GET("/mode", h.Mode)
	apiGroup.POST("/classify", h.Classify)
	apiGroup.POST("/completion", h.Completion)
	apiGroup.POST("/ab-test", h.ABTest)
	apiGroup.POST("/ab-test/:id/vote", h.Vote)
	apiGroup.GET("/ab-tests/history", h.ABHistory)

	stats := apiGroup.Group("/analytics")
	stats.GET("/summary", h.Summary)
	stats.GET("/timeseries", h.Timeseries)
	stats.GET("/model-distribution", h.ModelDistribution)
	stats.GET("/cost-comparison", h.CostComparison)
	stats.GET("/recent", h.Recent)
	stats.GET("/insights", h.Insights)
}

// Health reports liveness plus the current operating mode.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"mode":   h.modes.Evaluate(),
	})
}

// Mode returns the full mode state: mode, reason, spend against cap.
func (h *Handlers) Mode(c *gin.Context) {
	c.JSON(http.StatusOK, h.modes.Info())
}

type classifyRequest struct {
	Prompt string `json:"prompt"`
}

// Classify runs the classifier and routing table without dispatching.
func (h *Handlers) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cls := classify.Classify(req.Prompt)
	cls.RecommendedModel, cls.RoutingReason = route.Recommend(cls.TaskType, cls.Complexity)
	c.JSON(http.StatusOK, cls)
}

type completionRequest struct {
	Prompt string           `json:"prompt"`
	Model  models.ModelName `json:"model"`
	Stream bool             `json:"stream"`
}

// Completion runs one routed completion, streamed as SSE or returned as a
// single JSON document.
func (h *Handlers) Completion(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Model != "" && !req.Model.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown model: " + string(req.Model)})
		return
	}

	events := h.completer.Stream(c.Request.Context(), req.Prompt, req.Model)

	if req.Stream {
		h.streamCompletion(c, events)
		return
	}
	h.bufferCompletion(c, events)
}

func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

func (h *Handlers) streamCompletion(c *gin.Context, events <-chan models.Event) {
	sseHeaders(c)

	for ev := range events {
		var err error
		switch ev.Type {
		case models.EventMetadata:
			err = sse.Encode(c.Writer, "metadata", ev)
		case models.EventChunk:
			err = sse.Encode(c.Writer, "chunk", gin.H{"content": ev.Content})
		case models.EventDone:
			// The wire done event carries only the final accounting; the
			// response text already went out as chunks.
			err = sse.Encode(c.Writer, "done", gin.H{
				"latency_ms":  ev.LatencyMs,
				"tokens_used": ev.TokensUsed,
				"cost_cents":  ev.CostCents,
			})
		case models.EventError:
			err = sse.Encode(c.Writer, "error", gin.H{"error": ev.Error})
		}
		if err != nil {
			log.Printf("[WARN]  writing completion stream: %v", err)
			return
		}
		c.Writer.Flush()
	}
}

func (h *Handlers) bufferCompletion(c *gin.Context, events <-chan models.Event) {
	var meta, done models.Event
	var failed bool
	var text string

	for ev := range events {
		switch ev.Type {
		case models.EventMetadata:
			meta = ev
		case models.EventDone:
			done = ev
			text = ev.ResponseText
		case models.EventError:
			failed = true
		}
	}

	if failed || done.Type == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model unavailable"})
		return
	}

	// After fallback the metadata of the winning attempt applies.
	meta.Model = done.Model
	c.JSON(http.StatusOK, gin.H{
		"metadata":      meta,
		"response_text": text,
		"latency_ms":    done.LatencyMs,
		"tokens_used":   done.TokensUsed,
		"cost_cents":    done.CostCents,
	})
}

type abTestRequest struct {
	Prompt string             `json:"prompt"`
	Models []models.ModelName `json:"models"`
	Stream bool               `json:"stream"`
}

// ABTest runs one prompt against several models concurrently. With stream
// enabled the multiplexed event sequence goes out as SSE; otherwise the
// handler waits for completion and returns the assembled results.
func (h *Handlers) ABTest(c *gin.Context) {
	var req abTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	for _, m := range req.Models {
		if !m.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown model: " + string(m)})
			return
		}
	}

	events := h.arena.Stream(c.Request.Context(), req.Prompt, req.Models)

	if req.Stream {
		h.streamArena(c, events)
		return
	}
	h.bufferArena(c, req.Prompt, events)
}

func (h *Handlers) streamArena(c *gin.Context, events <-chan models.Event) {
	sseHeaders(c)

	for ev := range events {
		var err error
		switch ev.Type {
		case models.EventStart:
			err = sse.Encode(c.Writer, "start", ev)
		case models.EventChunk:
			err = sse.Encode(c.Writer, "chunk", gin.H{"model": ev.Model, "content": ev.Content})
		case models.EventModelDone:
			err = sse.Encode(c.Writer, "model_done", ev)
		case models.EventComplete:
			err = sse.Encode(c.Writer, "complete", gin.H{"test_id": ev.TestID})
		case models.EventError:
			err = sse.Encode(c.Writer, "error", gin.H{"error": ev.Error})
		}
		if err != nil {
			log.Printf("[WARN]  writing arena stream: %v", err)
			return
		}
		c.Writer.Flush()
	}
}

func (h *Handlers) bufferArena(c *gin.Context, prompt string, events <-chan models.Event) {
	var start models.Event
	var complete bool
	for ev := range events {
		switch ev.Type {
		case models.EventStart:
			start = ev
		case models.EventComplete:
			complete = true
		case models.EventError:
			c.JSON(http.StatusInternalServerError, gin.H{"error": ev.Error})
			return
		}
	}
	if !complete {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "test did not complete"})
		return
	}

	test, err := h.store.GetABTest(c.Request.Context(), start.TestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"test_id":    test.ID,
		"prompt":     prompt,
		"task_type":  test.TaskType,
		"complexity": test.Complexity,
		"results":    test.Results,
	})
}

type voteRequest struct {
	WinnerModel models.ModelName `json:"winner_model"`
}

// Vote records the winner for a finished test. Premature, duplicate, and
// non-participant votes are acknowledged but ignored.
func (h *Handlers) Vote(c *gin.Context) {
	testID := c.Param("id")

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.WinnerModel.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid winner_model"})
		return
	}

	if _, err := h.store.GetABTest(c.Request.Context(), testID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "A/B test not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.arena.Vote(c.Request.Context(), testID, req.WinnerModel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "test_id": testID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "test_id": testID, "winner": req.WinnerModel})
}

// Summary returns the lifetime aggregate stats.
func (h *Handlers) Summary(c *gin.Context) {
	sum, err := h.store.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Timeseries returns per-day rollups for the trailing window.
func (h *Handlers) Timeseries(c *gin.Context) {
	days := intQuery(c, "days", 7, 1, 90)
	points, err := h.store.Timeseries(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, points)
}

// ModelDistribution returns per-model usage shares.
func (h *Handlers) ModelDistribution(c *gin.Context) {
	dist, err := h.store.ModelDistribution(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dist)
}

// Insights returns derived recommendations and alerts.
func (h *Handlers) Insights(c *gin.Context) {
	list, err := h.insights.Insights(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "data": list})
}

// CostComparison returns actual versus always-premium spend.
func (h *Handlers) CostComparison(c *gin.Context) {
	cc, err := h.store.CostComparison(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cc)
}

// Recent returns the newest requests with prompts truncated for display.
func (h *Handlers) Recent(c *gin.Context) {
	limit := intQuery(c, "limit", 20, 1, 200)
	requests, err := h.store.RecentRequests(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for i := range requests {
		requests[i].Prompt = truncate(requests[i].Prompt, promptPreviewLen)
	}
	c.JSON(http.StatusOK, requests)
}

// ABHistory returns recent arena tests with prompts truncated for display.
func (h *Handlers) ABHistory(c *gin.Context) {
	limit := intQuery(c, "limit", 20, 1, 200)
	tests, err := h.store.ABHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for i := range tests {
		tests[i].Prompt = truncate(tests[i].Prompt, promptPreviewLen)
	}
	c.JSON(http.StatusOK, tests)
}

func intQuery(c *gin.Context, name string, fallback, min, max int) int {
	val, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil || val < min || val > max {
		return fallback
	}
	return val
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
