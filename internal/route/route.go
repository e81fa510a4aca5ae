// Package route implements the static routing table and the cost model.
//
// The routing table maps (task type, complexity band) to an ordered list of
// candidate models, most-preferred first. Simple prompts land on cheap models
// (gpt-4o-mini, claude-3-haiku) while complex ones go to stronger models
// (claude-3.5-sonnet, gpt-4o). The cost model carries the static per-model
// rate card: cents per 1K tokens, simulated latency range, and the simulated
// failure probability used by the mock gateway.
package route

import (
	"fmt"
	"math"

	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// CostCentsPer1K is the rate card: cost in cents per 1K tokens.
var CostCentsPer1K = map[models.ModelName]float64{
	models.ModelClaudeSonnet: 0.30,
	models.ModelGPT4o:        0.25,
	models.ModelGeminiPro:    0.18,
	models.ModelDeepSeekV3:   0.14,
	models.ModelGPT4oMini:    0.015,
	models.ModelClaudeHaiku:  0.008,
}

// PremiumRateCents is the hypothetical "always use the best model" rate used
// for savings calculations.
var PremiumRateCents = CostCentsPer1K[models.ModelClaudeSonnet]

// LatencyRange is the simulated latency bounds for one model, in ms.
type LatencyRange struct {
	MinMs int64
	MaxMs int64
}

// LatencyRanges holds the simulated latency distribution per model.
var LatencyRanges = map[models.ModelName]LatencyRange{
	models.ModelGeminiPro:    {200, 800},
	models.ModelClaudeHaiku:  {200, 600},
	models.ModelGPT4oMini:    {300, 700},
	models.ModelDeepSeekV3:   {300, 600},
	models.ModelClaudeSonnet: {800, 3000},
	models.ModelGPT4o:        {600, 2500},
}

// FailureRate is the per-attempt simulated failure probability.
const FailureRate = 0.05

// primary is the most-preferred model per (task type, band) cell.
var primary = map[models.TaskType]map[models.ComplexityBand]models.ModelName{
	models.TaskCode: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelClaudeSonnet,
		models.BandHigh:   models.ModelClaudeSonnet,
	},
	models.TaskMath: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelDeepSeekV3,
		models.BandHigh:   models.ModelDeepSeekV3,
	},
	models.TaskCreative: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelGPT4o,
		models.BandHigh:   models.ModelClaudeSonnet,
	},
	models.TaskSummarization: {
		models.BandLow:    models.ModelClaudeHaiku,
		models.BandMedium: models.ModelGPT4oMini,
		models.BandHigh:   models.ModelGeminiPro,
	},
	models.TaskQA: {
		models.BandLow:    models.ModelClaudeHaiku,
		models.BandMedium: models.ModelGPT4oMini,
		models.BandHigh:   models.ModelGPT4o,
	},
	models.TaskTranslation: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelGPT4o,
		models.BandHigh:   models.ModelGPT4o,
	},
	models.TaskMultiStep: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelClaudeSonnet,
		models.BandHigh:   models.ModelClaudeSonnet,
	},
}

// fallback is the retry successor per model.
var fallback = map[models.ModelName]models.ModelName{
	models.ModelClaudeSonnet: models.ModelGPT4o,
	models.ModelGPT4o:        models.ModelClaudeSonnet,
	models.ModelGeminiPro:    models.ModelGPT4o,
	models.ModelDeepSeekV3:   models.ModelGPT4oMini,
	models.ModelGPT4oMini:    models.ModelClaudeHaiku,
	models.ModelClaudeHaiku:  models.ModelGPT4oMini,
}

// reasons explains why each model gets picked.
var reasons = map[models.ModelName]string{
	models.ModelClaudeSonnet: "Best for complex reasoning and code generation",
	models.ModelGPT4o:        "Strong general-purpose model for medium-high complexity",
	models.ModelGeminiPro:    "Excellent for long-context summarization tasks",
	models.ModelDeepSeekV3:   "Specialized in mathematical and logical reasoning",
	models.ModelGPT4oMini:    "Cost-efficient for straightforward tasks",
	models.ModelClaudeHaiku:  "Ultra-fast and cheap for simple lookups",
}

// Band buckets a complexity score.
func Band(complexity float64) models.ComplexityBand {
	switch {
	case complexity <= 3.0:
		return models.BandLow
	case complexity <= 6.0:
		return models.BandMedium
	default:
		return models.BandHigh
	}
}

// Candidates returns the ordered candidate list for a routing cell:
// the cell's primary model followed by its fallback chain, deduplicated.
// The list is never empty and models outside it are unreachable for the cell.
func Candidates(taskType models.TaskType, complexity float64) []models.ModelName {
	band := Band(complexity)
	head, ok := primary[taskType][band]
	if !ok {
		head = models.ModelGPT4oMini
	}

	list := []models.ModelName{head}
	seen := map[models.ModelName]bool{head: true}
	for next, ok := fallback[list[len(list)-1]]; ok && !seen[next]; next, ok = fallback[list[len(list)-1]] {
		seen[next] = true
		list = append(list, next)
	}
	return list
}

// FallbackChain returns the retry successors of a model, in order,
// deduplicated and excluding the model itself.
func FallbackChain(m models.ModelName) []models.ModelName {
	var chain []models.ModelName
	seen := map[models.ModelName]bool{m: true}
	for next, ok := fallback[m]; ok && !seen[next]; next, ok = fallback[next] {
		seen[next] = true
		chain = append(chain, next)
	}
	return chain
}

// Recommend returns the most-preferred model for a cell plus the templated
// routing reason surfaced to callers.
func Recommend(taskType models.TaskType, complexity float64) (models.ModelName, string) {
	model := Candidates(taskType, complexity)[0]
	reason := fmt.Sprintf("%s (complexity %.1f, band=%s)", reasons[model], complexity, Band(complexity))
	return model, reason
}

// CalculateCost returns the cost in cents for a model and token count,
// rounded to 4 decimal places.
func CalculateCost(model models.ModelName, tokens int64) float64 {
	return round4(CostCentsPer1K[model] * float64(tokens) / 1000)
}

// HypotheticalCost is what the same tokens would cost on the premium model.
func HypotheticalCost(tokens int64) float64 {
	return round4(PremiumRateCents * float64(tokens) / 1000)
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
