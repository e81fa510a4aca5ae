package classify

import (
	"strings"
	"testing"

	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

func TestDetectTaskType(t *testing.T) {
	cases := []struct {
		name   string
		prompt string
		want   models.TaskType
	}{
		{"code keyword", "write a python function to parse json", models.TaskCode},
		{"debug pattern", "debug this error in my unit test", models.TaskCode},
		{"math", "solve this equation and calculate the derivative", models.TaskMath},
		{"creative", "write a short story about a dragon poem", models.TaskCreative},
		{"summarization", "summarize this article into key points tldr", models.TaskSummarization},
		{"translation", "translate this sentence to spanish", models.TaskTranslation},
		{"multi step", "first analyze the data, then compare the results and finally make a plan step by step", models.TaskMultiStep},
		{"plain question", "what color is the sky", models.TaskQA},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, conf := DetectTaskType(tc.prompt)
			if got != tc.want {
				t.Errorf("DetectTaskType(%q) = %s, want %s", tc.prompt, got, tc.want)
			}
			if conf <= 0 || conf > 1 {
				t.Errorf("confidence %v outside (0,1]", conf)
			}
		})
	}
}

func TestDetectTaskTypeNoSignal(t *testing.T) {
	got, conf := DetectTaskType("zzz qqq xyzzy")
	if got != models.TaskQA {
		t.Errorf("expected qa default, got %s", got)
	}
	if conf != 0.3 {
		t.Errorf("expected default confidence 0.3, got %v", conf)
	}
}

func TestDetectTaskTypeEmptyPrompt(t *testing.T) {
	got, conf := DetectTaskType("")
	if got != models.TaskQA || conf != 0.3 {
		t.Errorf("empty prompt: got %s/%v, want qa/0.3", got, conf)
	}
}

func TestDetectTaskTypeDeterministic(t *testing.T) {
	prompt := "explain how to implement a binary search and prove its complexity"
	first, _ := DetectTaskType(prompt)
	for i := 0; i < 50; i++ {
		got, _ := DetectTaskType(prompt)
		if got != first {
			t.Fatalf("classification flapped: %s then %s", first, got)
		}
	}
}

func TestExtractSignalsRanges(t *testing.T) {
	long := strings.Repeat("antidisestablishmentarianism polymorphism algorithm kubernetes ", 60)
	for _, prompt := range []string{"", "hi", "explain the algorithm step by step", long} {
		tt, conf := DetectTaskType(prompt)
		signals := ExtractSignals(prompt, tt, conf)
		if len(signals) != 6 {
			t.Fatalf("expected 6 signals, got %d", len(signals))
		}
		for name, v := range signals {
			if v < 0 || v > 10 {
				t.Errorf("signal %s = %v outside [0,10] for %q", name, v, prompt)
			}
		}
	}
}

func TestComputeComplexityClamped(t *testing.T) {
	low := map[string]float64{
		SignalTokenLength: 0, SignalTaskTypeMatch: 0, SignalReasoning: 0,
		SignalDomain: 0, SignalContext: 0, SignalVocabulary: 0,
	}
	if got := ComputeComplexity(low); got != 1.0 {
		t.Errorf("expected floor 1.0, got %v", got)
	}

	high := map[string]float64{
		SignalTokenLength: 10, SignalTaskTypeMatch: 10, SignalReasoning: 10,
		SignalDomain: 10, SignalContext: 10, SignalVocabulary: 10,
	}
	if got := ComputeComplexity(high); got != 10.0 {
		t.Errorf("expected ceiling 10.0, got %v", got)
	}
}

func TestComputeComplexityOrderIndependent(t *testing.T) {
	// Float summation must not depend on map iteration order.
	signals := map[string]float64{
		SignalTokenLength: 3.17, SignalTaskTypeMatch: 7.77, SignalReasoning: 1.03,
		SignalDomain: 9.91, SignalContext: 0.13, SignalVocabulary: 5.55,
	}
	first := ComputeComplexity(signals)
	for i := 0; i < 500; i++ {
		if got := ComputeComplexity(signals); got != first {
			t.Fatalf("run %d: complexity %v differs from %v for identical signals", i, got, first)
		}
	}
}

func TestComplexityMonotonicWithSignals(t *testing.T) {
	simple := Classify("what is two plus two")
	hard := Classify(strings.Repeat("analyze and evaluate the tradeoffs, derive the complexity bounds, optimize the distributed consensus algorithm ", 20))
	if hard.Complexity <= simple.Complexity {
		t.Errorf("expected harder prompt to score higher: %v vs %v", hard.Complexity, simple.Complexity)
	}
}

func TestClassifyFillsAllFields(t *testing.T) {
	cls := Classify("write a go function that reverses a linked list")
	if cls.TaskType != models.TaskCode {
		t.Errorf("expected code, got %s", cls.TaskType)
	}
	if cls.Complexity < 1 || cls.Complexity > 10 {
		t.Errorf("complexity %v outside [1,10]", cls.Complexity)
	}
	if cls.Confidence <= 0 || cls.Confidence > 1 {
		t.Errorf("confidence %v outside (0,1]", cls.Confidence)
	}
	if len(cls.Signals) != 6 {
		t.Errorf("expected 6 signals, got %d", len(cls.Signals))
	}
}

func TestDominantSignal(t *testing.T) {
	signals := map[string]float64{
		SignalTokenLength: 1, SignalTaskTypeMatch: 2, SignalReasoning: 9,
		SignalDomain: 3, SignalContext: 0, SignalVocabulary: 4,
	}
	if got := DominantSignal(signals); got != SignalReasoning {
		t.Errorf("expected %s, got %s", SignalReasoning, got)
	}
}
