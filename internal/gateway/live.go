package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/sse"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// defaultOpenRouterURL is the upstream chat-completions endpoint.
const defaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// openRouterModels maps internal model names to OpenRouter model IDs.
var openRouterModels = map[models.ModelName]string{
	models.ModelClaudeSonnet: "anthropic/claude-3.5-sonnet",
	models.ModelGPT4o:        "openai/gpt-4o",
	models.ModelGeminiPro:    "google/gemini-pro-1.5",
	models.ModelDeepSeekV3:   "deepseek/deepseek-chat",
	models.ModelGPT4oMini:    "openai/gpt-4o-mini",
	models.ModelClaudeHaiku:  "anthropic/claude-3-haiku",
}

// Live forwards completions to the OpenRouter API and translates its native
// SSE stream into the gateway event shape. Upstream or network errors map to
// an error terminal event; the HTTP client timeout bounds every call.
type Live struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewLive creates a Live gateway with the given upstream credential.
func NewLive(apiKey string) *Live {
	return &Live{
		apiKey:  apiKey,
		baseURL: defaultOpenRouterURL,
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// NewLiveWithURL is NewLive pointed at an alternate upstream, used by tests.
func NewLiveWithURL(apiKey, baseURL string) *Live {
	l := NewLive(apiKey)
	l.baseURL = baseURL
	return l
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Stream implements Gateway against the upstream completion API.
func (l *Live) Stream(ctx context.Context, model models.ModelName, taskType models.TaskType, prompt string) <-chan models.Event {
	out := make(chan models.Event)

	go func() {
		defer close(out)

		if !emit(ctx, out, models.Event{
			Type:            models.EventMetadata,
			Model:           model,
			EstimatedTokens: EstimateTokens(prompt),
		}) {
			return
		}

		upstreamModel, ok := openRouterModels[model]
		if !ok {
			emit(ctx, out, models.Event{
				Type: models.EventError, Model: model,
				Error: fmt.Sprintf("no upstream mapping for model %s", model),
			})
			return
		}

		start := time.Now()
		resp, err := l.send(ctx, upstreamModel, prompt)
		if err != nil {
			log.Printf("[WARN]  upstream request failed for %s: %v", model, err)
			emit(ctx, out, models.Event{
				Type: models.EventError, Model: model,
				Error: "upstream request failed",
			})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Printf("[WARN]  upstream error %d for %s", resp.StatusCode, model)
			emit(ctx, out, models.Event{
				Type: models.EventError, Model: model,
				Error: fmt.Sprintf("upstream API error: %d", resp.StatusCode),
			})
			return
		}

		var fullText strings.Builder
		var tokensUsed int64

		dec := sse.NewDecoder(resp.Body)
		for {
			ev, err := dec.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				// The connection died mid-stream; a partial body must not
				// finalize as a successful completion.
				log.Printf("[WARN]  upstream stream aborted for %s: %v", model, err)
				emit(ctx, out, models.Event{
					Type: models.EventError, Model: model,
					Error: "upstream stream aborted",
				})
				return
			}
			payload := strings.TrimSpace(string(ev.Data))
			if payload == "[DONE]" {
				break
			}

			var chunk chatChunk
			if json.Unmarshal(ev.Data, &chunk) != nil {
				// Malformed upstream payload: skip, keep the stream alive.
				continue
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				content := chunk.Choices[0].Delta.Content
				fullText.WriteString(content)
				if !emit(ctx, out, models.Event{Type: models.EventChunk, Model: model, Content: content}) {
					return
				}
			}
			if chunk.Usage != nil && chunk.Usage.TotalTokens > 0 {
				tokensUsed = chunk.Usage.TotalTokens
			}
		}

		if tokensUsed == 0 {
			// Upstream omitted usage; estimate from the completion text.
			tokensUsed = int64(float64(len(strings.Fields(fullText.String()))) * 1.3)
			if tokensUsed < 10 {
				tokensUsed = 10
			}
		}

		emit(ctx, out, models.Event{
			Type:         models.EventDone,
			Model:        model,
			ResponseText: fullText.String(),
			LatencyMs:    time.Since(start).Milliseconds(),
			TokensUsed:   tokensUsed,
		})
	}()

	return out
}

func (l *Live) send(ctx context.Context, upstreamModel, prompt string) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:    upstreamModel,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://llm-router.dev")
	req.Header.Set("X-Title", "Intelligent LLM Router")

	return l.client.Do(req)
}
