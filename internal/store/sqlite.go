package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/route"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// SQLite is the single-file default backend.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Concurrent orchestrations write from several goroutines; a single
	// connection avoids SQLITE_BUSY on overlapping writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	s := &SQLite{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id          TEXT PRIMARY KEY,
		prompt      TEXT NOT NULL,
		task_type   TEXT NOT NULL,
		complexity  REAL NOT NULL,
		confidence  REAL NOT NULL,
		model       TEXT NOT NULL,
		was_routed  INTEGER NOT NULL DEFAULT 1,
		response_text TEXT,
		latency_ms  INTEGER NOT NULL DEFAULT 0,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		cost_cents  REAL NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at);
	CREATE INDEX IF NOT EXISTS idx_requests_model ON requests(model);
	CREATE INDEX IF NOT EXISTS idx_requests_task_type ON requests(task_type);

	CREATE TABLE IF NOT EXISTS ab_tests (
		id           TEXT PRIMARY KEY,
		prompt       TEXT NOT NULL,
		task_type    TEXT NOT NULL,
		complexity   REAL NOT NULL,
		models       TEXT NOT NULL,
		winner_model TEXT,
		created_at   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ab_tests_created_at ON ab_tests(created_at);

	CREATE TABLE IF NOT EXISTS ab_results (
		id          TEXT PRIMARY KEY,
		ab_test_id  TEXT NOT NULL REFERENCES ab_tests(id),
		model       TEXT NOT NULL,
		response_text TEXT,
		latency_ms  INTEGER NOT NULL DEFAULT 0,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		cost_cents  REAL NOT NULL DEFAULT 0,
		error       INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_ab_results_ab_test_id ON ab_results(ab_test_id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// InsertRequest appends one finalized request record.
func (s *SQLite) InsertRequest(ctx context.Context, req *models.Request) error {
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (
			id, prompt, task_type, complexity, confidence, model,
			was_routed, response_text, latency_ms, tokens_used, cost_cents, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.Prompt, req.TaskType, req.Complexity, req.Confidence, req.Model,
		boolToInt(req.WasRouted), req.ResponseText, req.LatencyMs, req.TokensUsed,
		req.CostCents, createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	return nil
}

// RecentRequests returns the newest records, most recent first.
func (s *SQLite) RecentRequests(ctx context.Context, limit int) ([]models.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, task_type, complexity, confidence, model,
		       was_routed, latency_ms, tokens_used, cost_cents, created_at
		FROM requests ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent requests: %w", err)
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		var r models.Request
		var wasRouted int
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Prompt, &r.TaskType, &r.Complexity, &r.Confidence,
			&r.Model, &wasRouted, &r.LatencyMs, &r.TokensUsed, &r.CostCents, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		r.WasRouted = wasRouted != 0
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RequestCount returns the number of stored requests.
func (s *SQLite) RequestCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting requests: %w", err)
	}
	return n, nil
}

// SpendToday sums cost_cents for records created today (UTC).
func (s *SQLite) SpendToday(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost_cents), 0) FROM requests
		WHERE created_at >= date('now')`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing today's spend: %w", err)
	}
	return total, nil
}

// InsertABTest appends one A/B test header record.
func (s *SQLite) InsertABTest(ctx context.Context, test *models.ABTest) error {
	modelsJSON, err := json.Marshal(test.Models)
	if err != nil {
		return fmt.Errorf("encoding model list: %w", err)
	}
	createdAt := test.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ab_tests (id, prompt, task_type, complexity, models, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		test.ID, test.Prompt, test.TaskType, test.Complexity,
		string(modelsJSON), createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting ab test: %w", err)
	}
	return nil
}

// InsertABResult attaches one model's terminal result to a test.
func (s *SQLite) InsertABResult(ctx context.Context, result *models.ABTestResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ab_results (id, ab_test_id, model, response_text, latency_ms, tokens_used, cost_cents, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.ABTestID, result.Model, result.ResponseText,
		result.LatencyMs, result.TokensUsed, result.CostCents, boolToInt(result.Failed),
	)
	if err != nil {
		return fmt.Errorf("inserting ab result: %w", err)
	}
	return nil
}

// GetABTest loads a test with its attached results.
func (s *SQLite) GetABTest(ctx context.Context, id string) (*models.ABTest, error) {
	var t models.ABTest
	var modelsJSON, createdAt string
	var winner sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, prompt, task_type, complexity, models, winner_model, created_at
		FROM ab_tests WHERE id = ?`, id).Scan(
		&t.ID, &t.Prompt, &t.TaskType, &t.Complexity, &modelsJSON, &winner, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying ab test: %w", err)
	}
	if err := json.Unmarshal([]byte(modelsJSON), &t.Models); err != nil {
		return nil, fmt.Errorf("decoding model list: %w", err)
	}
	if winner.Valid {
		m := models.ModelName(winner.String)
		t.WinnerModel = &m
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	results, err := s.abResults(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Results = results
	return &t, nil
}

func (s *SQLite) abResults(ctx context.Context, testID string) ([]models.ABTestResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ab_test_id, model, response_text, latency_ms, tokens_used, cost_cents, error
		FROM ab_results WHERE ab_test_id = ?`, testID)
	if err != nil {
		return nil, fmt.Errorf("querying ab results: %w", err)
	}
	defer rows.Close()

	var out []models.ABTestResult
	for rows.Next() {
		var r models.ABTestResult
		var failed int
		if err := rows.Scan(&r.ID, &r.ABTestID, &r.Model, &r.ResponseText,
			&r.LatencyMs, &r.TokensUsed, &r.CostCents, &failed); err != nil {
			return nil, fmt.Errorf("scanning ab result: %w", err)
		}
		r.Failed = failed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordVote implements the write-once winner rule: the vote lands only when
// the test exists, every model has a terminal result, and no winner is set.
func (s *SQLite) RecordVote(ctx context.Context, testID string, winner models.ModelName) (bool, error) {
	test, err := s.GetABTest(ctx, testID)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if test.WinnerModel != nil || len(test.Results) < len(test.Models) {
		return false, nil
	}
	if !containsModel(test.Models, winner) {
		return false, nil
	}

	// The IS NULL guard keeps the write idempotent under racing votes.
	res, err := s.db.ExecContext(ctx, `
		UPDATE ab_tests SET winner_model = ? WHERE id = ? AND winner_model IS NULL`,
		winner, testID)
	if err != nil {
		return false, fmt.Errorf("recording vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recording vote: %w", err)
	}
	return n > 0, nil
}

// Summary aggregates lifetime stats plus estimated savings versus always
// using the premium model.
func (s *SQLite) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	var totalTokens int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(cost_cents), 0),
		       COALESCE(AVG(latency_ms), 0),
		       COALESCE(AVG(complexity), 0),
		       COUNT(DISTINCT model),
		       COALESCE(SUM(tokens_used), 0)
		FROM requests`).Scan(
		&out.TotalRequests, &out.TotalCostCents, &out.AvgLatencyMs,
		&out.AvgComplexity, &out.ModelsUsed, &totalTokens)
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM requests WHERE date(created_at) = date('now')`).Scan(&out.RequestsToday)
	if err != nil {
		return nil, fmt.Errorf("querying today's count: %w", err)
	}

	finishSummary(&out, totalTokens)
	return &out, nil
}

// Timeseries returns per-day rollups for the trailing window.
func (s *SQLite) Timeseries(ctx context.Context, days int) ([]TimeseriesPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(created_at), COUNT(*),
		       ROUND(COALESCE(AVG(latency_ms), 0), 1),
		       ROUND(COALESCE(SUM(cost_cents), 0), 4)
		FROM requests
		WHERE date(created_at) >= date('now', ?)
		GROUP BY date(created_at)
		ORDER BY date(created_at) ASC`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("querying timeseries: %w", err)
	}
	defer rows.Close()

	var out []TimeseriesPoint
	for rows.Next() {
		var p TimeseriesPoint
		if err := rows.Scan(&p.Day, &p.Requests, &p.AvgLatencyMs, &p.TotalCostCents); err != nil {
			return nil, fmt.Errorf("scanning timeseries point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ModelDistribution returns per-model usage shares.
func (s *SQLite) ModelDistribution(ctx context.Context) ([]ModelUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, COUNT(*),
		       ROUND(COUNT(*) * 100.0 / (SELECT COUNT(*) FROM requests), 1)
		FROM requests GROUP BY model ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying model distribution: %w", err)
	}
	defer rows.Close()

	var out []ModelUsage
	for rows.Next() {
		var u ModelUsage
		if err := rows.Scan(&u.Model, &u.Count, &u.Percentage); err != nil {
			return nil, fmt.Errorf("scanning model usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CostComparison contrasts actual spend per model with the hypothetical
// always-premium cost.
func (s *SQLite) CostComparison(ctx context.Context) (*CostComparison, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, COALESCE(SUM(tokens_used), 0), ROUND(COALESCE(SUM(cost_cents), 0), 4)
		FROM requests GROUP BY model ORDER BY SUM(cost_cents) DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying cost comparison: %w", err)
	}
	defer rows.Close()

	var byModel []ModelCost
	for rows.Next() {
		var mc ModelCost
		if err := rows.Scan(&mc.Model, &mc.TotalTokens, &mc.ActualCost); err != nil {
			return nil, fmt.Errorf("scanning model cost: %w", err)
		}
		byModel = append(byModel, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buildCostComparison(byModel), nil
}

// ABHistory returns recent tests, each with its attached results.
func (s *SQLite) ABHistory(ctx context.Context, limit int) ([]models.ABTest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, task_type, complexity, models, winner_model, created_at
		FROM ab_tests ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying ab history: %w", err)
	}
	defer rows.Close()

	var out []models.ABTest
	for rows.Next() {
		var t models.ABTest
		var modelsJSON, createdAt string
		var winner sql.NullString
		if err := rows.Scan(&t.ID, &t.Prompt, &t.TaskType, &t.Complexity,
			&modelsJSON, &winner, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning ab test: %w", err)
		}
		if err := json.Unmarshal([]byte(modelsJSON), &t.Models); err != nil {
			return nil, fmt.Errorf("decoding model list: %w", err)
		}
		if winner.Valid {
			m := models.ModelName(winner.String)
			t.WinnerModel = &m
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		results, err := s.abResults(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Results = results
	}
	return out, nil
}

// finishSummary fills the savings fields shared by both backends.
func finishSummary(out *Summary, totalTokens int64) {
	out.TotalCostCents = math.Round(out.TotalCostCents*100) / 100
	out.AvgLatencyMs = math.Round(out.AvgLatencyMs*10) / 10
	out.AvgComplexity = math.Round(out.AvgComplexity*10) / 10
	out.HypotheticalCostCents = math.Round(route.HypotheticalCost(totalTokens)*100) / 100
	if out.HypotheticalCostCents > 0 {
		out.CostSavingsPercent = math.Round((1-out.TotalCostCents/out.HypotheticalCostCents)*1000) / 10
	}
}

// buildCostComparison fills the totals shared by both backends.
func buildCostComparison(byModel []ModelCost) *CostComparison {
	var totalActual float64
	var totalTokens int64
	for _, mc := range byModel {
		totalActual += mc.ActualCost
		totalTokens += mc.TotalTokens
	}
	hypothetical := route.HypotheticalCost(totalTokens)

	cc := &CostComparison{
		ByModel:                byModel,
		TotalActualCents:       math.Round(totalActual*100) / 100,
		TotalHypotheticalCents: math.Round(hypothetical*100) / 100,
		SavingsCents:           math.Round((hypothetical-totalActual)*100) / 100,
	}
	if hypothetical > 0 {
		cc.SavingsPercent = math.Round((1-totalActual/hypothetical)*1000) / 10
	}
	return cc
}

func containsModel(list []models.ModelName, m models.ModelName) bool {
	for _, v := range list {
		if v == m {
			return true
		}
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
