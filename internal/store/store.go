// Package store implements the append-only record store for requests and
// A/B tests, plus the read-side aggregation queries behind the analytics
// endpoints. Two interchangeable backends exist: SQLite (the default, a
// single-file database suited to demo deployments and tests) and PostgreSQL
// (for shared deployments). Both expose the same Store interface.
package store

import (
	"context"
	"errors"

	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Summary is the aggregate statistics payload for /analytics/summary.
type Summary struct {
	TotalRequests         int64   `json:"total_requests"`
	TotalCostCents        float64 `json:"total_cost_cents"`
	AvgLatencyMs          float64 `json:"avg_latency_ms"`
	AvgComplexity         float64 `json:"avg_complexity"`
	HypotheticalCostCents float64 `json:"hypothetical_cost_cents"`
	CostSavingsPercent    float64 `json:"cost_savings_percent"`
	ModelsUsed            int64   `json:"models_used"`
	RequestsToday         int64   `json:"requests_today"`
}

// TimeseriesPoint is one day's rollup for /analytics/timeseries.
type TimeseriesPoint struct {
	Day            string  `json:"day"`
	Requests       int64   `json:"requests"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	TotalCostCents float64 `json:"total_cost_cents"`
}

// ModelUsage is one model's share for /analytics/model-distribution.
type ModelUsage struct {
	Model      models.ModelName `json:"model"`
	Count      int64            `json:"count"`
	Percentage float64          `json:"percentage"`
}

// ModelCost is one model's actual spend for /analytics/cost-comparison.
type ModelCost struct {
	Model       models.ModelName `json:"model"`
	TotalTokens int64            `json:"total_tokens"`
	ActualCost  float64          `json:"actual_cost"`
}

// CostComparison contrasts actual spend with the hypothetical cost of always
// using the premium model.
type CostComparison struct {
	ByModel               []ModelCost `json:"by_model"`
	TotalActualCents      float64     `json:"total_actual_cents"`
	TotalHypotheticalCents float64    `json:"total_hypothetical_cents"`
	SavingsCents          float64     `json:"savings_cents"`
	SavingsPercent        float64     `json:"savings_percent"`
}

// Store is the persistence contract shared by both backends. Writes are
// append-only except for the single write-once winner_model vote update.
type Store interface {
	// Requests.
	InsertRequest(ctx context.Context, req *models.Request) error
	RecentRequests(ctx context.Context, limit int) ([]models.Request, error)
	RequestCount(ctx context.Context) (int64, error)
	SpendToday(ctx context.Context) (float64, error)

	// A/B tests.
	InsertABTest(ctx context.Context, test *models.ABTest) error
	InsertABResult(ctx context.Context, result *models.ABTestResult) error
	GetABTest(ctx context.Context, id string) (*models.ABTest, error)
	// RecordVote sets winner_model exactly once. It reports false without
	// error when the vote is ignored: unknown test, not all models terminal
	// yet, or a winner already recorded.
	RecordVote(ctx context.Context, testID string, winner models.ModelName) (bool, error)

	// Read-side aggregation.
	Summary(ctx context.Context) (*Summary, error)
	Timeseries(ctx context.Context, days int) ([]TimeseriesPoint, error)
	ModelDistribution(ctx context.Context) ([]ModelUsage, error)
	CostComparison(ctx context.Context) (*CostComparison, error)
	ABHistory(ctx context.Context, limit int) ([]models.ABTest, error)

	Close() error
}
