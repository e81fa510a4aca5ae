package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/gateway"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/mode"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/orchestrate"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/sse"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/store"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

func newTestRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	modes := mode.NewController("", 200)
	mock := gateway.NewMockSeeded(7)

	completer := orchestrate.NewCompleter(st, modes, mock, mock)
	arena := orchestrate.NewArena(st, modes, mock, mock)

	r := gin.New()
	NewHandlers(st, modes, completer, arena).Register(r)
	return r, st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
	if body["mode"] != string(models.ModeDemo) {
		t.Errorf("mode = %q, want demo without a credential", body["mode"])
	}
}

func TestModeEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/mode", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var info models.ModeInfo
	decodeBody(t, w, &info)
	if info.Mode != models.ModeDemo {
		t.Errorf("mode = %q, want demo", info.Mode)
	}
	if info.Reason == "" {
		t.Error("reason is empty")
	}
}

func TestClassifyEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/classify", gin.H{
		"prompt": "Write a Python function to parse a JSON config file",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var cls models.Classification
	decodeBody(t, w, &cls)
	if cls.TaskType != models.TaskCode {
		t.Errorf("task_type = %q, want code", cls.TaskType)
	}
	if cls.RecommendedModel == "" {
		t.Error("recommended_model not filled")
	}
	if cls.RoutingReason == "" {
		t.Error("routing_reason not filled")
	}
	if cls.Complexity < 1 || cls.Complexity > 10 {
		t.Errorf("complexity = %v out of range", cls.Complexity)
	}
}

func TestClassifyRejectsBadBody(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCompletionBuffered(t *testing.T) {
	r, st := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/completion", gin.H{
		"prompt": "Summarize the following article about container orchestration",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Metadata     models.Event `json:"metadata"`
		ResponseText string       `json:"response_text"`
		LatencyMs    int64        `json:"latency_ms"`
		TokensUsed   int64        `json:"tokens_used"`
		CostCents    float64      `json:"cost_cents"`
	}
	decodeBody(t, w, &body)

	if body.ResponseText == "" {
		t.Error("response_text is empty")
	}
	if body.TokensUsed <= 0 {
		t.Errorf("tokens_used = %d, want > 0", body.TokensUsed)
	}
	if body.Metadata.Model == "" {
		t.Error("metadata.model is empty")
	}
	if !body.Metadata.WasRouted {
		t.Error("was_routed = false for a routed request")
	}

	count, err := st.RequestCount(context.Background())
	if err != nil {
		t.Fatalf("request count: %v", err)
	}
	if count != 1 {
		t.Errorf("persisted requests = %d, want 1", count)
	}
}

func TestCompletionRejectsUnknownModel(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/completion", gin.H{
		"prompt": "hello",
		"model":  "gpt-9000",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCompletionStreamed(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/completion", gin.H{
		"prompt": "Explain how DNS resolution works",
		"stream": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	dec := sse.NewDecoder(w.Body)
	var names []string
	var donePayload map[string]any
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("decode stream: %v", err)
		}
		names = append(names, ev.Name)
		if ev.Name == "done" {
			if err := sse.DecodeJSON(ev, &donePayload); err != nil {
				t.Fatalf("decode done payload: %v", err)
			}
		}
	}

	if len(names) < 3 {
		t.Fatalf("stream too short: %v", names)
	}
	if names[0] != "metadata" {
		t.Errorf("first event = %q, want metadata", names[0])
	}
	if names[len(names)-1] != "done" {
		t.Errorf("last event = %q, want done", names[len(names)-1])
	}
	for _, n := range names[1 : len(names)-1] {
		if n != "chunk" {
			t.Errorf("mid-stream event = %q, want chunk", n)
		}
	}

	// The wire done event carries accounting only; text already streamed.
	if _, ok := donePayload["response_text"]; ok {
		t.Error("done event leaks response_text")
	}
	for _, key := range []string{"latency_ms", "tokens_used", "cost_cents"} {
		if _, ok := donePayload[key]; !ok {
			t.Errorf("done event missing %s", key)
		}
	}
}

func TestABTestBufferedAndVote(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/ab-test", gin.H{
		"prompt": "Translate 'good morning' into French and Spanish",
		"models": []string{string(models.ModelGPT4oMini), string(models.ModelClaudeHaiku)},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		TestID  string                `json:"test_id"`
		Results []models.ABTestResult `json:"results"`
	}
	decodeBody(t, w, &body)
	if body.TestID == "" {
		t.Fatal("test_id is empty")
	}
	if len(body.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(body.Results))
	}

	// Unknown test gets 404.
	w = doJSON(t, r, http.MethodPost, "/api/ab-test/no-such-test/vote", gin.H{
		"winner_model": string(models.ModelClaudeHaiku),
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("vote on unknown test: status = %d, want 404", w.Code)
	}

	// Invalid model name gets 400.
	w = doJSON(t, r, http.MethodPost, "/api/ab-test/"+body.TestID+"/vote", gin.H{
		"winner_model": "gpt-9000",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("vote with bad model: status = %d, want 400", w.Code)
	}

	// Non-participant vote is acknowledged but ignored.
	w = doJSON(t, r, http.MethodPost, "/api/ab-test/"+body.TestID+"/vote", gin.H{
		"winner_model": string(models.ModelDeepSeekV3),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("non-participant vote: status = %d", w.Code)
	}
	var voteResp map[string]any
	decodeBody(t, w, &voteResp)
	if voteResp["status"] != "ignored" {
		t.Errorf("non-participant vote status = %v, want ignored", voteResp["status"])
	}

	// First valid vote lands.
	w = doJSON(t, r, http.MethodPost, "/api/ab-test/"+body.TestID+"/vote", gin.H{
		"winner_model": string(models.ModelClaudeHaiku),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("vote: status = %d", w.Code)
	}
	decodeBody(t, w, &voteResp)
	if voteResp["status"] != "ok" {
		t.Errorf("vote status = %v, want ok", voteResp["status"])
	}
	if voteResp["winner"] != string(models.ModelClaudeHaiku) {
		t.Errorf("winner = %v", voteResp["winner"])
	}

	// Second vote is ignored, winner is write-once.
	w = doJSON(t, r, http.MethodPost, "/api/ab-test/"+body.TestID+"/vote", gin.H{
		"winner_model": string(models.ModelGPT4oMini),
	})
	decodeBody(t, w, &voteResp)
	if voteResp["status"] != "ignored" {
		t.Errorf("duplicate vote status = %v, want ignored", voteResp["status"])
	}
}

func TestABTestStreamed(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/ab-test", gin.H{
		"prompt": "Write a haiku about the ocean",
		"models": []string{string(models.ModelGPT4oMini), string(models.ModelClaudeHaiku)},
		"stream": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	dec := sse.NewDecoder(w.Body)
	var names []string
	modelDone := 0
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("decode stream: %v", err)
		}
		names = append(names, ev.Name)
		if ev.Name == "model_done" {
			modelDone++
		}
	}

	if names[0] != "start" {
		t.Errorf("first event = %q, want start", names[0])
	}
	if names[len(names)-1] != "complete" {
		t.Errorf("last event = %q, want complete", names[len(names)-1])
	}
	if modelDone != 2 {
		t.Errorf("model_done events = %d, want 2", modelDone)
	}
}

func TestRecentTruncatesPrompts(t *testing.T) {
	r, st := newTestRouter(t)

	long := strings.Repeat("x", 200)
	err := st.InsertRequest(context.Background(), &models.Request{
		ID:         "req-long",
		Prompt:     long,
		TaskType:   models.TaskQA,
		Complexity: 2.0,
		Confidence: 0.5,
		Model:      models.ModelGPT4oMini,
		WasRouted:  true,
		LatencyMs:  120,
		TokensUsed: 40,
		CostCents:  0.0006,
	})
	if err != nil {
		t.Fatalf("insert request: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/analytics/recent?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var requests []models.Request
	decodeBody(t, w, &requests)
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}
	got := requests[0].Prompt
	if len(got) != promptPreviewLen+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("prompt not truncated: len=%d suffix=%q", len(got), got[len(got)-3:])
	}
}

func TestAnalyticsEndpointsOnEmptyStore(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{
		"/api/analytics/summary",
		"/api/analytics/timeseries",
		"/api/analytics/timeseries?days=banana",
		"/api/analytics/model-distribution",
		"/api/analytics/cost-comparison",
		"/api/ab-tests/history",
	} {
		w := doJSON(t, r, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, w.Code)
		}
	}
}
