package orchestrate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/gateway"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/mode"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/store"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

func newTestArena(t *testing.T, mock *gateway.Mock) (*Arena, *store.SQLite) {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	modes := mode.NewController("", 200)
	return NewArena(st, modes, mock, mock), st
}

func TestArenaModelsSelection(t *testing.T) {
	got := ArenaModels(models.TaskCode, nil)
	if len(got) != 3 || got[0] != models.ModelClaudeSonnet {
		t.Errorf("unexpected default code set: %v", got)
	}

	requested := []models.ModelName{models.ModelClaudeHaiku, models.ModelDeepSeekV3}
	got = ArenaModels(models.TaskCode, requested)
	if len(got) != 2 || got[0] != models.ModelClaudeHaiku {
		t.Errorf("expected requested set to win, got %v", got)
	}

	// A single requested model is not a comparison; fall back to defaults.
	got = ArenaModels(models.TaskQA, []models.ModelName{models.ModelGPT4o})
	if len(got) != 3 {
		t.Errorf("expected default qa set, got %v", got)
	}

	four := []models.ModelName{
		models.ModelClaudeSonnet, models.ModelGPT4o, models.ModelGPT4oMini, models.ModelClaudeHaiku,
	}
	got = ArenaModels(models.TaskCode, four)
	if len(got) != 3 {
		t.Errorf("expected cap at 3 models, got %d", len(got))
	}
}

func TestArenaStreamOrderAndPersistence(t *testing.T) {
	mock := gateway.NewMockSeeded(10)
	mock.SetFailFn(func(models.ModelName) bool { return false })
	a, st := newTestArena(t, mock)

	contenders := []models.ModelName{models.ModelClaudeHaiku, models.ModelGPT4oMini}
	events := collect(t, a.Stream(context.Background(), "what is the capital of france", contenders))

	if events[0].Type != models.EventStart {
		t.Fatalf("expected start first, got %s", events[0].Type)
	}
	testID := events[0].TestID
	if testID == "" {
		t.Fatal("expected test id on start event")
	}
	if len(events[0].Models) != 2 {
		t.Errorf("expected 2 models on start, got %v", events[0].Models)
	}

	last := events[len(events)-1]
	if last.Type != models.EventComplete {
		t.Fatalf("expected complete last, got %s", last.Type)
	}

	doneFor := map[models.ModelName]bool{}
	for _, ev := range events[1 : len(events)-1] {
		switch ev.Type {
		case models.EventChunk:
			if ev.Model == "" {
				t.Error("expected model tag on arena chunk")
			}
			if doneFor[ev.Model] {
				t.Errorf("chunk from %s after its model_done", ev.Model)
			}
		case models.EventModelDone:
			doneFor[ev.Model] = true
		default:
			t.Errorf("unexpected event type %s mid-stream", ev.Type)
		}
	}
	if len(doneFor) != 2 {
		t.Fatalf("expected model_done for both models, got %d", len(doneFor))
	}

	test, err := st.GetABTest(context.Background(), testID)
	if err != nil {
		t.Fatalf("GetABTest: %v", err)
	}
	if len(test.Results) != 2 {
		t.Fatalf("expected 2 persisted results, got %d", len(test.Results))
	}
	for _, r := range test.Results {
		if r.Failed {
			t.Errorf("unexpected failed result for %s", r.Model)
		}
		if r.TokensUsed <= 0 {
			t.Errorf("expected tokens for %s", r.Model)
		}
	}
}

func TestArenaModelFailureStillCompletes(t *testing.T) {
	mock := gateway.NewMockSeeded(11)
	mock.SetFailFn(func(m models.ModelName) bool { return m == models.ModelClaudeHaiku })
	a, st := newTestArena(t, mock)

	contenders := []models.ModelName{models.ModelClaudeHaiku, models.ModelGPT4oMini}
	events := collect(t, a.Stream(context.Background(), "compare failure handling", contenders))

	last := events[len(events)-1]
	if last.Type != models.EventComplete {
		t.Fatalf("expected complete even with one failure, got %s", last.Type)
	}

	var failedDone bool
	for _, ev := range events {
		if ev.Type == models.EventModelDone && ev.Model == models.ModelClaudeHaiku {
			if ev.Error == "" {
				t.Error("expected error on failed model_done")
			}
			failedDone = true
		}
	}
	if !failedDone {
		t.Fatal("expected a model_done for the failed model")
	}

	test, err := st.GetABTest(context.Background(), events[0].TestID)
	if err != nil {
		t.Fatalf("GetABTest: %v", err)
	}
	if len(test.Results) != 2 {
		t.Fatalf("expected both results persisted, got %d", len(test.Results))
	}
	var sawFailed bool
	for _, r := range test.Results {
		if r.Model == models.ModelClaudeHaiku && r.Failed {
			sawFailed = true
		}
	}
	if !sawFailed {
		t.Error("expected failed result flagged for the failing model")
	}
}

func TestArenaVoteLifecycle(t *testing.T) {
	mock := gateway.NewMockSeeded(12)
	mock.SetFailFn(func(models.ModelName) bool { return false })
	a, _ := newTestArena(t, mock)
	ctx := context.Background()

	contenders := []models.ModelName{models.ModelClaudeHaiku, models.ModelGPT4oMini}
	events := a.Stream(ctx, "which answer is better", contenders)

	start := <-events
	testID := start.TestID

	// Vote before completion is ignored; at least one model has no result yet.
	ok, err := a.Vote(ctx, testID, models.ModelClaudeHaiku)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if ok {
		t.Error("expected early vote to be ignored")
	}

	for range events {
	}

	ok, err = a.Vote(ctx, testID, models.ModelGPT4oMini)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if !ok {
		t.Fatal("expected vote after completion to land")
	}

	ok, err = a.Vote(ctx, testID, models.ModelClaudeHaiku)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if ok {
		t.Error("expected duplicate vote to be ignored")
	}
}
