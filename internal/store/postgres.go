package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// Postgres is the deployment backend, backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the given DSN and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close shuts down the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id          TEXT PRIMARY KEY,
		prompt      TEXT NOT NULL,
		task_type   TEXT NOT NULL,
		complexity  DOUBLE PRECISION NOT NULL,
		confidence  DOUBLE PRECISION NOT NULL,
		model       TEXT NOT NULL,
		was_routed  BOOLEAN NOT NULL DEFAULT TRUE,
		response_text TEXT,
		latency_ms  BIGINT NOT NULL DEFAULT 0,
		tokens_used BIGINT NOT NULL DEFAULT 0,
		cost_cents  DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at);
	CREATE INDEX IF NOT EXISTS idx_requests_model ON requests(model);
	CREATE INDEX IF NOT EXISTS idx_requests_task_type ON requests(task_type);

	CREATE TABLE IF NOT EXISTS ab_tests (
		id           TEXT PRIMARY KEY,
		prompt       TEXT NOT NULL,
		task_type    TEXT NOT NULL,
		complexity   DOUBLE PRECISION NOT NULL,
		models       JSONB NOT NULL,
		winner_model TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_ab_tests_created_at ON ab_tests(created_at);

	CREATE TABLE IF NOT EXISTS ab_results (
		id          TEXT PRIMARY KEY,
		ab_test_id  TEXT NOT NULL REFERENCES ab_tests(id),
		model       TEXT NOT NULL,
		response_text TEXT,
		latency_ms  BIGINT NOT NULL DEFAULT 0,
		tokens_used BIGINT NOT NULL DEFAULT 0,
		cost_cents  DOUBLE PRECISION NOT NULL DEFAULT 0,
		error       BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_ab_results_ab_test_id ON ab_results(ab_test_id);
	`
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (p *Postgres) InsertRequest(ctx context.Context, req *models.Request) error {
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO requests (
			id, prompt, task_type, complexity, confidence, model,
			was_routed, response_text, latency_ms, tokens_used, cost_cents, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID, req.Prompt, req.TaskType, req.Complexity, req.Confidence, req.Model,
		req.WasRouted, req.ResponseText, req.LatencyMs, req.TokensUsed, req.CostCents, createdAt)
	if err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	return nil
}

func (p *Postgres) RecentRequests(ctx context.Context, limit int) ([]models.Request, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, prompt, task_type, complexity, confidence, model,
		       was_routed, latency_ms, tokens_used, cost_cents, created_at
		FROM requests ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent requests: %w", err)
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		var r models.Request
		if err := rows.Scan(&r.ID, &r.Prompt, &r.TaskType, &r.Complexity, &r.Confidence,
			&r.Model, &r.WasRouted, &r.LatencyMs, &r.TokensUsed, &r.CostCents, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) RequestCount(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting requests: %w", err)
	}
	return n, nil
}

func (p *Postgres) SpendToday(ctx context.Context) (float64, error) {
	var total float64
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(cost_cents), 0) FROM requests
		WHERE created_at >= CURRENT_DATE`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing today's spend: %w", err)
	}
	return total, nil
}

func (p *Postgres) InsertABTest(ctx context.Context, test *models.ABTest) error {
	modelsJSON, err := json.Marshal(test.Models)
	if err != nil {
		return fmt.Errorf("encoding model list: %w", err)
	}
	createdAt := test.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO ab_tests (id, prompt, task_type, complexity, models, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		test.ID, test.Prompt, test.TaskType, test.Complexity, modelsJSON, createdAt)
	if err != nil {
		return fmt.Errorf("inserting ab test: %w", err)
	}
	return nil
}

func (p *Postgres) InsertABResult(ctx context.Context, result *models.ABTestResult) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO ab_results (id, ab_test_id, model, response_text, latency_ms, tokens_used, cost_cents, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.ID, result.ABTestID, result.Model, result.ResponseText,
		result.LatencyMs, result.TokensUsed, result.CostCents, result.Failed)
	if err != nil {
		return fmt.Errorf("inserting ab result: %w", err)
	}
	return nil
}

func (p *Postgres) GetABTest(ctx context.Context, id string) (*models.ABTest, error) {
	var t models.ABTest
	var modelsJSON []byte
	var winner sql.NullString
	err := p.pool.QueryRow(ctx, `
		SELECT id, prompt, task_type, complexity, models, winner_model, created_at
		FROM ab_tests WHERE id = $1`, id).Scan(
		&t.ID, &t.Prompt, &t.TaskType, &t.Complexity, &modelsJSON, &winner, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying ab test: %w", err)
	}
	if err := json.Unmarshal(modelsJSON, &t.Models); err != nil {
		return nil, fmt.Errorf("decoding model list: %w", err)
	}
	if winner.Valid {
		m := models.ModelName(winner.String)
		t.WinnerModel = &m
	}

	results, err := p.abResults(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Results = results
	return &t, nil
}

func (p *Postgres) abResults(ctx context.Context, testID string) ([]models.ABTestResult, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, ab_test_id, model, response_text, latency_ms, tokens_used, cost_cents, error
		FROM ab_results WHERE ab_test_id = $1`, testID)
	if err != nil {
		return nil, fmt.Errorf("querying ab results: %w", err)
	}
	defer rows.Close()

	var out []models.ABTestResult
	for rows.Next() {
		var r models.ABTestResult
		if err := rows.Scan(&r.ID, &r.ABTestID, &r.Model, &r.ResponseText,
			&r.LatencyMs, &r.TokensUsed, &r.CostCents, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning ab result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) RecordVote(ctx context.Context, testID string, winner models.ModelName) (bool, error) {
	test, err := p.GetABTest(ctx, testID)
	if errors.Is(err, ErrNotFound) {
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

	tag, err := p.pool.Exec(ctx, `
		UPDATE ab_tests SET winner_model = $1 WHERE id = $2 AND winner_model IS NULL`,
		winner, testID)
	if err != nil {
		return false, fmt.Errorf("recording vote: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	var totalTokens int64
	err := p.pool.QueryRow(ctx, `
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

	err = p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM requests WHERE created_at >= CURRENT_DATE`).Scan(&out.RequestsToday)
	if err != nil {
		return nil, fmt.Errorf("querying today's count: %w", err)
	}

	finishSummary(&out, totalTokens)
	return &out, nil
}

func (p *Postgres) Timeseries(ctx context.Context, days int) ([]TimeseriesPoint, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COUNT(*),
		       ROUND(COALESCE(AVG(latency_ms), 0)::numeric, 1)::float8,
		       ROUND(COALESCE(SUM(cost_cents), 0)::numeric, 4)::float8
		FROM requests
		WHERE created_at::date >= CURRENT_DATE - $1
		GROUP BY created_at::date
		ORDER BY created_at::date ASC`, days)
	if err != nil {
		return nil, fmt.Errorf("querying timeseries: %w", err)
	}
	defer rows.Close()

	var out []TimeseriesPoint
	for rows.Next() {
		var pt TimeseriesPoint
		if err := rows.Scan(&pt.Day, &pt.Requests, &pt.AvgLatencyMs, &pt.TotalCostCents); err != nil {
			return nil, fmt.Errorf("scanning timeseries point: %w", err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

func (p *Postgres) ModelDistribution(ctx context.Context) ([]ModelUsage, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT model, COUNT(*),
		       ROUND(COUNT(*) * 100.0 / (SELECT COUNT(*) FROM requests), 1)::float8
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

func (p *Postgres) CostComparison(ctx context.Context) (*CostComparison, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT model, COALESCE(SUM(tokens_used), 0),
		       ROUND(COALESCE(SUM(cost_cents), 0)::numeric, 4)::float8
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

func (p *Postgres) ABHistory(ctx context.Context, limit int) ([]models.ABTest, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, prompt, task_type, complexity, models, winner_model, created_at
		FROM ab_tests ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying ab history: %w", err)
	}
	defer rows.Close()

	var out []models.ABTest
	for rows.Next() {
		var t models.ABTest
		var modelsJSON []byte
		var winner sql.NullString
		if err := rows.Scan(&t.ID, &t.Prompt, &t.TaskType, &t.Complexity,
			&modelsJSON, &winner, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ab test: %w", err)
		}
		if err := json.Unmarshal(modelsJSON, &t.Models); err != nil {
			return nil, fmt.Errorf("decoding model list: %w", err)
		}
		if winner.Valid {
			m := models.ModelName(winner.String)
			t.WinnerModel = &m
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		results, err := p.abResults(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Results = results
	}
	return out, nil
}
