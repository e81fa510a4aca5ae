// Package analytics derives actionable insights from the recorded routing
// history: daily cost spikes, cheaper-model switch recommendations, and a
// routing savings summary.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/route"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/store"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// InsightType categorizes the kind of insight generated.
type InsightType string

const (
	InsightCostSpike    InsightType = "cost_spike"
	InsightModelSwitch  InsightType = "model_switch"
	InsightSavingsFound InsightType = "savings_found"
)

// Severity indicates the urgency of an insight.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Insight represents an actionable recommendation or alert.
type Insight struct {
	ID                   string           `json:"id"`
	Type                 InsightType      `json:"type"`
	Severity             Severity         `json:"severity"`
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	EstimatedSavingCents float64          `json:"estimated_saving_cents"`
	Model                models.ModelName `json:"model,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

// spikeWindowDays bounds how far back spike detection looks.
const spikeWindowDays = 14

// Engine generates insights from the store's aggregation queries.
type Engine struct {
	store store.Store
}

// NewEngine creates an Engine over the given store.
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// Insights assembles all insight categories, most urgent first.
func (e *Engine) Insights(ctx context.Context) ([]Insight, error) {
	spikes, err := e.DetectSpikes(ctx)
	if err != nil {
		return nil, err
	}
	switches, err := e.RecommendModelSwitches(ctx)
	if err != nil {
		return nil, err
	}
	savings, err := e.routingSavings(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Insight, 0, len(spikes)+len(switches)+len(savings))
	out = append(out, spikes...)
	out = append(out, switches...)
	out = append(out, savings...)
	return out, nil
}

// DetectSpikes flags days where spend exceeds twice the trailing average of
// the preceding days within the window.
func (e *Engine) DetectSpikes(ctx context.Context) ([]Insight, error) {
	points, err := e.store.Timeseries(ctx, spikeWindowDays)
	if err != nil {
		return nil, fmt.Errorf("detecting spikes: %w", err)
	}

	var insights []Insight
	for i, p := range points {
		start := 0
		if i > 7 {
			start = i - 7
		}
		prior := points[start:i]
		if len(prior) == 0 {
			continue
		}
		var sum float64
		for _, q := range prior {
			sum += q.TotalCostCents
		}
		avg := sum / float64(len(prior))
		if avg <= 0 || p.TotalCostCents <= avg*2 {
			continue
		}

		multiple := p.TotalCostCents / avg
		severity := SeverityWarning
		if multiple > 5 {
			severity = SeverityCritical
		}
		insights = append(insights, Insight{
			ID:       "spike-" + p.Day,
			Type:     InsightCostSpike,
			Severity: severity,
			Title:    fmt.Sprintf("Cost spike on %s", p.Day),
			Description: fmt.Sprintf(
				"Spend on %s was %.4f cents, %.1fx the trailing average of %.4f cents.",
				p.Day, p.TotalCostCents, multiple, avg,
			),
			EstimatedSavingCents: round2(p.TotalCostCents - avg),
			CreatedAt:            time.Now().UTC(),
		})
	}
	return insights, nil
}

// RecommendModelSwitches suggests moving spend from expensive models to their
// cheaper fallback when the rate card shows a saving.
func (e *Engine) RecommendModelSwitches(ctx context.Context) ([]Insight, error) {
	cc, err := e.store.CostComparison(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying model spend: %w", err)
	}

	var insights []Insight
	for _, mc := range cc.ByModel {
		rate := route.CostCentsPer1K[mc.Model]
		cheaper, cheaperRate := cheaperAlternative(mc.Model)
		if cheaper == "" || mc.ActualCost <= 0 {
			continue
		}

		saving := round2(mc.ActualCost * (1 - cheaperRate/rate))
		if saving <= 0 {
			continue
		}
		insights = append(insights, Insight{
			ID:       "switch-" + string(mc.Model),
			Type:     InsightModelSwitch,
			Severity: SeverityInfo,
			Title:    fmt.Sprintf("Consider switching %s to %s", mc.Model, cheaper),
			Description: fmt.Sprintf(
				"%s spent %.4f cents on %d tokens. Routing simpler prompts to %s could save ~%.2f cents.",
				mc.Model, mc.ActualCost, mc.TotalTokens, cheaper, saving,
			),
			EstimatedSavingCents: saving,
			Model:                mc.Model,
			CreatedAt:            time.Now().UTC(),
		})
	}
	return insights, nil
}

// routingSavings summarizes how much the router has already saved against
// always using the premium model.
func (e *Engine) routingSavings(ctx context.Context) ([]Insight, error) {
	sum, err := e.store.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}
	if sum.TotalRequests == 0 || sum.CostSavingsPercent <= 0 {
		return nil, nil
	}

	saved := round2(sum.HypotheticalCostCents - sum.TotalCostCents)
	return []Insight{{
		ID:       "savings-total",
		Type:     InsightSavingsFound,
		Severity: SeverityInfo,
		Title:    fmt.Sprintf("Routing saved %.1f%% so far", sum.CostSavingsPercent),
		Description: fmt.Sprintf(
			"Across %d requests the router spent %.2f cents where always using the premium model would have cost %.2f cents.",
			sum.TotalRequests, sum.TotalCostCents, sum.HypotheticalCostCents,
		),
		EstimatedSavingCents: saved,
		CreatedAt:            time.Now().UTC(),
	}}, nil
}

// cheaperAlternative walks the fallback chain for the first model with a
// strictly lower rate.
func cheaperAlternative(m models.ModelName) (models.ModelName, float64) {
	rate := route.CostCentsPer1K[m]
	for _, candidate := range route.FallbackChain(m) {
		if r := route.CostCentsPer1K[candidate]; r < rate {
			return candidate, r
		}
	}
	return "", 0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
