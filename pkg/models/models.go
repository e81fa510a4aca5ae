// Package models defines the core data structures shared across the router.
package models

import "time"

// TaskType categorizes the nature of a prompt.
type TaskType string

const (
	TaskCode          TaskType = "code"
	TaskCreative      TaskType = "creative"
	TaskMath          TaskType = "math"
	TaskSummarization TaskType = "summarization"
	TaskTranslation   TaskType = "translation"
	TaskQA            TaskType = "qa"
	TaskMultiStep     TaskType = "multi_step"
)

// TaskTypes lists every valid task type in tie-break priority order:
// when two categories score equally, the earlier entry wins.
var TaskTypes = []TaskType{
	TaskCode, TaskMath, TaskMultiStep, TaskTranslation,
	TaskSummarization, TaskCreative, TaskQA,
}

// Valid reports whether t is one of the seven known task types.
func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ModelName identifies a routable LLM. The set is fixed at deploy time.
type ModelName string

const (
	ModelClaudeSonnet ModelName = "claude-3.5-sonnet"
	ModelGPT4o        ModelName = "gpt-4o"
	ModelGeminiPro    ModelName = "gemini-1.5-pro"
	ModelDeepSeekV3   ModelName = "deepseek-v3"
	ModelGPT4oMini    ModelName = "gpt-4o-mini"
	ModelClaudeHaiku  ModelName = "claude-3-haiku"
)

// AllModels lists every deployable model.
var AllModels = []ModelName{
	ModelClaudeSonnet, ModelGPT4o, ModelGeminiPro,
	ModelDeepSeekV3, ModelGPT4oMini, ModelClaudeHaiku,
}

// Valid reports whether m is a known model.
func (m ModelName) Valid() bool {
	for _, known := range AllModels {
		if m == known {
			return true
		}
	}
	return false
}

// ComplexityBand buckets the 1-10 complexity score for routing lookups.
type ComplexityBand string

const (
	BandLow    ComplexityBand = "low"    // 1.0 - 3.0
	BandMedium ComplexityBand = "medium" // 3.1 - 6.0
	BandHigh   ComplexityBand = "high"   // 6.1 - 10.0
)

// Classification is the classifier's output for a single prompt.
// It is embedded (denormalized) into the Request record at creation time.
type Classification struct {
	TaskType         TaskType           `json:"task_type"`
	Complexity       float64            `json:"complexity"` // always in [1,10]
	Confidence       float64            `json:"confidence"` // always in [0,1]
	Signals          map[string]float64 `json:"signals"`
	RecommendedModel ModelName          `json:"recommended_model"`
	RoutingReason    string             `json:"routing_reason"`
}

// Request is one finalized routing decision plus completion.
// Immutable after finalization.
type Request struct {
	ID           string    `json:"id"`
	Prompt       string    `json:"prompt"`
	TaskType     TaskType  `json:"task_type"`
	Complexity   float64   `json:"complexity"`
	Confidence   float64   `json:"confidence"`
	Model        ModelName `json:"model"` // actually used; may differ from recommended after fallback
	WasRouted    bool      `json:"was_routed"`
	ResponseText string    `json:"response_text,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	TokensUsed   int64     `json:"tokens_used"`
	CostCents    float64   `json:"cost_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

// ABTest is one arena comparison run across 2-3 models.
type ABTest struct {
	ID          string         `json:"id"`
	Prompt      string         `json:"prompt"`
	TaskType    TaskType       `json:"task_type"`
	Complexity  float64        `json:"complexity"`
	Models      []ModelName    `json:"models"`
	WinnerModel *ModelName     `json:"winner_model,omitempty"` // set exactly once by vote
	Results     []ABTestResult `json:"results,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ABTestResult is one model's outcome within an ABTest.
type ABTestResult struct {
	ID           string    `json:"id"`
	ABTestID     string    `json:"ab_test_id"`
	Model        ModelName `json:"model"`
	ResponseText string    `json:"response_text,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	TokensUsed   int64     `json:"tokens_used"`
	CostCents    float64   `json:"cost_cents"`
	Failed       bool      `json:"error,omitempty"`
}

// Mode is the gateway operating mode.
type Mode string

const (
	ModeLive Mode = "live"
	ModeDemo Mode = "demo"
)

// ModeReason explains why the current mode is in effect.
type ModeReason string

const (
	ReasonCredentialPresent ModeReason = "api_key_present"
	ReasonNoCredential      ModeReason = "no_api_key"
	ReasonSpendCapReached   ModeReason = "spend_cap_reached"
)

// ModeInfo is the /mode endpoint payload.
type ModeInfo struct {
	Mode            Mode       `json:"mode"`
	Reason          ModeReason `json:"reason"`
	SpendTodayCents float64    `json:"spend_today_cents"`
	SpendCapCents   float64    `json:"spend_cap_cents"`
}
