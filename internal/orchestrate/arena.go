package orchestrate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/classify"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/gateway"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/mode"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/route"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/store"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// defaultArenaModels picks the comparison set per task type when the caller
// does not request specific models.
var defaultArenaModels = map[models.TaskType][]models.ModelName{
	models.TaskCode:          {models.ModelClaudeSonnet, models.ModelGPT4o, models.ModelGPT4oMini},
	models.TaskMath:          {models.ModelDeepSeekV3, models.ModelGPT4o, models.ModelGPT4oMini},
	models.TaskCreative:      {models.ModelClaudeSonnet, models.ModelGPT4o, models.ModelGPT4oMini},
	models.TaskSummarization: {models.ModelGeminiPro, models.ModelGPT4oMini, models.ModelClaudeHaiku},
	models.TaskQA:            {models.ModelGPT4o, models.ModelGPT4oMini, models.ModelClaudeHaiku},
	models.TaskTranslation:   {models.ModelGPT4o, models.ModelGPT4oMini, models.ModelClaudeSonnet},
	models.TaskMultiStep:     {models.ModelClaudeSonnet, models.ModelGPT4o, models.ModelGPT4oMini},
}

// maxArenaModels caps how many models one test runs.
const maxArenaModels = 3

// ArenaModels resolves the model set for a test: an explicit request of two
// or more models wins (truncated to the cap), otherwise the task's default.
func ArenaModels(taskType models.TaskType, requested []models.ModelName) []models.ModelName {
	if len(requested) >= 2 {
		if len(requested) > maxArenaModels {
			requested = requested[:maxArenaModels]
		}
		return requested
	}
	if set, ok := defaultArenaModels[taskType]; ok {
		return set
	}
	return []models.ModelName{models.ModelGPT4o, models.ModelGPT4oMini}
}

// Arena runs one prompt against several models concurrently and multiplexes
// their streams into a single tagged event sequence.
type Arena struct {
	store store.Store
	modes *mode.Controller
	live  gateway.Gateway
	mock  gateway.Gateway
}

// NewArena wires an arena over the given backends.
func NewArena(st store.Store, modes *mode.Controller, live, mock gateway.Gateway) *Arena {
	return &Arena{store: st, modes: modes, live: live, mock: mock}
}

// Stream runs an arena test and emits: one start event, interleaved
// model-tagged chunk events, one model_done per model as it finishes, and a
// final complete event once every model has a terminal result. The channel is
// closed after complete, or early on cancellation. There is no cross-model
// fallback; a failed model yields a model_done carrying its error.
func (a *Arena) Stream(ctx context.Context, prompt string, requested []models.ModelName) <-chan models.Event {
	out := make(chan models.Event)
	go func() {
		defer close(out)
		a.run(ctx, prompt, requested, out)
	}()
	return out
}

func (a *Arena) run(ctx context.Context, prompt string, requested []models.ModelName, out chan<- models.Event) {
	cls := classify.Classify(prompt)
	contenders := ArenaModels(cls.TaskType, requested)
	testID := uuid.New().String()

	test := &models.ABTest{
		ID:         testID,
		Prompt:     prompt,
		TaskType:   cls.TaskType,
		Complexity: cls.Complexity,
		Models:     contenders,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.InsertABTest(ctx, test); err != nil {
		log.Printf("[ERROR] arena %s: persisting test: %v", testID, err)
		send(ctx, out, models.Event{Type: models.EventError, TestID: testID, Error: "failed to start test"})
		return
	}

	// One mode decision covers every contender.
	runMode := a.modes.Evaluate()
	gw := a.mock
	if runMode == models.ModeLive {
		gw = a.live
	}

	log.Printf("[INFO] arena %s: task=%s complexity=%.1f models=%v mode=%s",
		testID, cls.TaskType, cls.Complexity, contenders, runMode)

	if !send(ctx, out, models.Event{
		Type:       models.EventStart,
		TestID:     testID,
		Models:     contenders,
		TaskType:   cls.TaskType,
		Complexity: cls.Complexity,
	}) {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, model := range contenders {
		model := model
		g.Go(func() error {
			a.runModel(gctx, gw, testID, model, cls.TaskType, prompt, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return
	}
	if ctx.Err() != nil {
		return
	}

	send(ctx, out, models.Event{Type: models.EventComplete, TestID: testID})
}

// runModel relays one contender's stream, tagging every event with the model,
// and persists its terminal result.
func (a *Arena) runModel(ctx context.Context, gw gateway.Gateway, testID string,
	model models.ModelName, taskType models.TaskType, prompt string, out chan<- models.Event) {

	started := time.Now()
	for ev := range gw.Stream(ctx, model, taskType, prompt) {
		switch ev.Type {
		case models.EventMetadata:
			// Per-model metadata is dropped; start already announced the set.
		case models.EventChunk:
			ev.Model = model
			if !send(ctx, out, ev) {
				return
			}
		case models.EventDone:
			cost := route.CalculateCost(model, ev.TokensUsed)
			latency := time.Since(started).Milliseconds()
			result := &models.ABTestResult{
				ID:           uuid.New().String(),
				ABTestID:     testID,
				Model:        model,
				ResponseText: ev.ResponseText,
				LatencyMs:    latency,
				TokensUsed:   ev.TokensUsed,
				CostCents:    cost,
			}
			if err := a.store.InsertABResult(ctx, result); err != nil {
				log.Printf("[ERROR] arena %s: persisting result for %s: %v", testID, model, err)
			}
			a.modes.RecordSpend(cost)
			send(ctx, out, models.Event{
				Type:       models.EventModelDone,
				TestID:     testID,
				Model:      model,
				LatencyMs:  latency,
				TokensUsed: ev.TokensUsed,
				CostCents:  cost,
			})
			return
		case models.EventError:
			result := &models.ABTestResult{
				ID:           uuid.New().String(),
				ABTestID:     testID,
				Model:        model,
				ResponseText: fmt.Sprintf("[Error: %s failed to generate a response]", model),
				Failed:       true,
			}
			if err := a.store.InsertABResult(ctx, result); err != nil {
				log.Printf("[ERROR] arena %s: persisting failed result for %s: %v", testID, model, err)
			}
			log.Printf("[WARN] arena %s: model %s failed: %s", testID, model, ev.Error)
			send(ctx, out, models.Event{
				Type:   models.EventModelDone,
				TestID: testID,
				Model:  model,
				Error:  ev.Error,
			})
			return
		}
	}
}

// Vote records a winner for a finished test. It returns false when the vote
// was ignored: unknown test, a model still running, a winner already set, or
// a model outside the test's set.
func (a *Arena) Vote(ctx context.Context, testID string, winner models.ModelName) (bool, error) {
	ok, err := a.store.RecordVote(ctx, testID, winner)
	if err != nil {
		return false, err
	}
	if !ok {
		log.Printf("[WARN] arena %s: vote for %s ignored", testID, winner)
	}
	return ok, nil
}
