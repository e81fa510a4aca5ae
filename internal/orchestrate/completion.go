// Package orchestrate drives completion runs end to end: classify, pick a
// backend for the current mode, stream the response, and persist the outcome.
// It also runs concurrent arena comparisons across several models.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/classify"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/gateway"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/mode"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/route"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/store"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// ErrExhaustedCandidates means every candidate model failed.
var ErrExhaustedCandidates = errors.New("all candidate models failed")

// maxAttempts bounds the fallback chain for one run.
const maxAttempts = 3

type runState string

const (
	stateClassifying runState = "CLASSIFYING"
	stateDispatching runState = "DISPATCHING"
	stateStreaming   runState = "STREAMING"
	stateFinalizing  runState = "FINALIZING"
	stateDone        runState = "DONE"
	stateFailed      runState = "FAILED"
)

// Completer runs single completions with automatic fallback.
type Completer struct {
	store store.Store
	modes *mode.Controller
	live  gateway.Gateway
	mock  gateway.Gateway
}

// NewCompleter wires a completer over the given backends.
func NewCompleter(st store.Store, modes *mode.Controller, live, mock gateway.Gateway) *Completer {
	return &Completer{store: st, modes: modes, live: live, mock: mock}
}

// Stream runs one completion and emits its event sequence on the returned
// channel: one enriched metadata event per attempt, chunks, then a single
// terminal done or error event. The channel is closed after the terminal
// event, or early if ctx is cancelled. If override is non-empty the run pins
// that model and skips routing.
func (c *Completer) Stream(ctx context.Context, prompt string, override models.ModelName) <-chan models.Event {
	out := make(chan models.Event)
	go func() {
		defer close(out)
		c.run(ctx, prompt, override, out)
	}()
	return out
}

func (c *Completer) run(ctx context.Context, prompt string, override models.ModelName, out chan<- models.Event) {
	state := stateClassifying
	cls := classify.Classify(prompt)
	cls.RecommendedModel, cls.RoutingReason = route.Recommend(cls.TaskType, cls.Complexity)

	candidates := route.Candidates(cls.TaskType, cls.Complexity)
	wasRouted := true
	if override != "" {
		candidates = []models.ModelName{override}
		wasRouted = false
	}
	if len(candidates) > maxAttempts {
		candidates = candidates[:maxAttempts]
	}

	// The live/demo decision is fixed for the whole run, fallbacks included.
	runMode := c.modes.Evaluate()
	gw := c.mock
	if runMode == models.ModeLive {
		gw = c.live
	}

	requestID := uuid.New().String()
	started := time.Now()
	state = stateDispatching

	for i, model := range candidates {
		log.Printf("[INFO] run %s: %s attempt %d/%d model=%s mode=%s",
			requestID, state, i+1, len(candidates), model, runMode)

		events := gw.Stream(ctx, model, cls.TaskType, prompt)
		state = stateStreaming

		terminal, ok := c.relay(ctx, events, out, requestID, &cls, wasRouted)
		if !ok || ctx.Err() != nil {
			// Cancelled mid-stream. Nothing is persisted.
			return
		}

		if terminal.Type == models.EventError {
			if i+1 < len(candidates) {
				next := candidates[i+1]
				log.Printf("[WARN] run %s: model %s failed, falling back to %s", requestID, model, next)
				marker := models.Event{
					Type:    models.EventChunk,
					Content: fmt.Sprintf("[Retrying with %s...] ", next),
				}
				if !send(ctx, out, marker) {
					return
				}
				state = stateDispatching
				continue
			}
			state = stateFailed
			log.Printf("[ERROR] run %s: %s, %v", requestID, state, ErrExhaustedCandidates)
			send(ctx, out, models.Event{
				Type:      models.EventError,
				RequestID: requestID,
				Error:     ErrExhaustedCandidates.Error(),
			})
			return
		}

		state = stateFinalizing
		cost := route.CalculateCost(model, terminal.TokensUsed)
		req := &models.Request{
			ID:           requestID,
			Prompt:       prompt,
			TaskType:     cls.TaskType,
			Complexity:   cls.Complexity,
			Confidence:   cls.Confidence,
			Model:        model,
			WasRouted:    wasRouted,
			ResponseText: terminal.ResponseText,
			LatencyMs:    time.Since(started).Milliseconds(),
			TokensUsed:   terminal.TokensUsed,
			CostCents:    cost,
			CreatedAt:    time.Now().UTC(),
		}
		if err := c.store.InsertRequest(ctx, req); err != nil {
			log.Printf("[ERROR] run %s: persisting request: %v", requestID, err)
		}
		c.modes.RecordSpend(cost)

		state = stateDone
		log.Printf("[INFO] run %s: %s model=%s tokens=%d cost=%.4f", requestID, state, model, terminal.TokensUsed, cost)
		send(ctx, out, models.Event{
			Type:         models.EventDone,
			RequestID:    requestID,
			Model:        model,
			ResponseText: terminal.ResponseText,
			LatencyMs:    req.LatencyMs,
			TokensUsed:   terminal.TokensUsed,
			CostCents:    cost,
		})
		return
	}
}

// relay forwards one backend stream, enriching its metadata event with the
// classification, and returns the terminal event. ok is false when the
// stream ended without a terminal event (cancellation).
func (c *Completer) relay(ctx context.Context, events <-chan models.Event, out chan<- models.Event,
	requestID string, cls *models.Classification, wasRouted bool) (models.Event, bool) {

	for ev := range events {
		switch ev.Type {
		case models.EventMetadata:
			ev.RequestID = requestID
			ev.TaskType = cls.TaskType
			ev.Complexity = cls.Complexity
			ev.Confidence = cls.Confidence
			ev.RoutingReason = cls.RoutingReason
			ev.WasRouted = wasRouted
			if !send(ctx, out, ev) {
				return models.Event{}, false
			}
		case models.EventChunk:
			if !send(ctx, out, ev) {
				return models.Event{}, false
			}
		case models.EventDone, models.EventError:
			return ev, true
		}
	}
	return models.Event{}, false
}

func send(ctx context.Context, out chan<- models.Event, ev models.Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
