package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/route"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// Mock simulates model completions without any upstream calls. Responses are
// canned per task type and streamed word by word with per-model pacing drawn
// from the cost model's latency ranges. A configurable failure probability
// (the cost model's per-model rate) injects error terminals so fallback
// logic gets exercised without a real backend.
type Mock struct {
	mu  sync.Mutex
	rng *rand.Rand

	// failFn overrides the probabilistic failure roll when non-nil.
	failFn func(models.ModelName) bool

	// paced enables real-time word pacing. Disabled in tests so streams
	// finish immediately while keeping the same event sequence.
	paced bool
}

// NewMock returns a paced mock gateway with a time-derived seed.
func NewMock() *Mock {
	return &Mock{rng: rand.New(rand.NewSource(time.Now().UnixNano())), paced: true}
}

// NewMockSeeded returns an unpaced mock with a fixed seed so tests and the
// data seeder get reproducible streams.
func NewMockSeeded(seed int64) *Mock {
	return &Mock{rng: rand.New(rand.NewSource(seed))}
}

// SetFailFn pins the failure decision per model, replacing the random roll.
// Passing nil restores probabilistic failures.
func (m *Mock) SetFailFn(fn func(models.ModelName) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFn = fn
}

func (m *Mock) shouldFail(model models.ModelName) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFn != nil {
		return m.failFn(model)
	}
	return m.rng.Float64() < route.FailureRate
}

// roll returns deterministic pseudo-random values under the mock's lock,
// since arena runs stream several models concurrently.
func (m *Mock) roll() (pick int, latencyFrac, thinkFrac float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Intn(1 << 16), m.rng.Float64(), 0.5 + 0.5*m.rng.Float64()
}

func (m *Mock) chunkDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Duration(10+m.rng.Intn(41)) * time.Millisecond
}

// Stream implements Gateway with a deterministic word-paced simulation.
func (m *Mock) Stream(ctx context.Context, model models.ModelName, taskType models.TaskType, prompt string) <-chan models.Event {
	out := make(chan models.Event)

	go func() {
		defer close(out)
		start := time.Now()

		if m.shouldFail(model) {
			if !emit(ctx, out, models.Event{Type: models.EventMetadata, Model: model}) {
				return
			}
			emit(ctx, out, models.Event{
				Type:  models.EventError,
				Model: model,
				Error: fmt.Sprintf("simulated failure for model %s", model),
			})
			return
		}

		pick, latencyFrac, thinkFrac := m.roll()
		text := mockResponse(taskType, pick)
		tokens := EstimateTokens(text)

		if !emit(ctx, out, models.Event{
			Type:            models.EventMetadata,
			Model:           model,
			EstimatedTokens: tokens,
		}) {
			return
		}

		// Simulated model latency, sampled from the per-model range.
		bounds := route.LatencyRanges[model]
		simulatedMs := bounds.MinMs + int64(latencyFrac*float64(bounds.MaxMs-bounds.MinMs))

		// Initial thinking time before the first chunk.
		if m.paced {
			think := time.Duration(thinkFrac*float64(bounds.MinMs)) * time.Millisecond
			if !sleep(ctx, think) {
				return
			}
		}

		words := strings.Split(text, " ")
		for i, word := range words {
			chunk := word
			if i > 0 {
				chunk = " " + word
			}
			if !emit(ctx, out, models.Event{Type: models.EventChunk, Model: model, Content: chunk}) {
				return
			}
			if m.paced {
				if !sleep(ctx, m.chunkDelay()) {
					return
				}
			}
		}

		latencyMs := simulatedMs
		if m.paced {
			latencyMs = time.Since(start).Milliseconds()
		}
		emit(ctx, out, models.Event{
			Type:         models.EventDone,
			Model:        model,
			ResponseText: text,
			LatencyMs:    latencyMs,
			TokensUsed:   tokens,
		})
	}()

	return out
}

// sleep waits for d or until the context is cancelled. Returns false on
// cancellation so the producer stops without emitting further events.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
