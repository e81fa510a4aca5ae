package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRequest(model models.ModelName, costCents float64, tokens int64) *models.Request {
	return &models.Request{
		ID:           uuid.New().String(),
		Prompt:       "write a function that reverses a string",
		TaskType:     models.TaskCode,
		Complexity:   6.0,
		Confidence:   0.91,
		Model:        model,
		WasRouted:    true,
		ResponseText: "done",
		LatencyMs:    1200,
		TokensUsed:   tokens,
		CostCents:    costCents,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestInsertAndRecentRequests(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := testRequest(models.ModelClaudeHaiku, 0.008, 1000)
	first.CreatedAt = time.Now().UTC().Add(-time.Minute)
	second := testRequest(models.ModelClaudeSonnet, 0.30, 1000)

	if err := s.InsertRequest(ctx, first); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}
	if err := s.InsertRequest(ctx, second); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}

	recent, err := s.RecentRequests(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRequests: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(recent))
	}
	if recent[0].ID != second.ID {
		t.Errorf("expected newest request first, got %s", recent[0].ID)
	}
	if !recent[0].WasRouted {
		t.Error("expected was_routed to round-trip as true")
	}

	n, err := s.RequestCount(ctx)
	if err != nil {
		t.Fatalf("RequestCount: %v", err)
	}
	if n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}
}

func TestSpendToday(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	today := testRequest(models.ModelGPT4oMini, 1.5, 1000)
	yesterday := testRequest(models.ModelClaudeSonnet, 99.0, 1000)
	yesterday.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)

	for _, r := range []*models.Request{today, yesterday} {
		if err := s.InsertRequest(ctx, r); err != nil {
			t.Fatalf("InsertRequest: %v", err)
		}
	}

	spend, err := s.SpendToday(ctx)
	if err != nil {
		t.Fatalf("SpendToday: %v", err)
	}
	if spend != 1.5 {
		t.Errorf("expected today's spend 1.5, got %v", spend)
	}
}

func TestABTestRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	test := &models.ABTest{
		ID:         uuid.New().String(),
		Prompt:     "compare these models",
		TaskType:   models.TaskQA,
		Complexity: 3.0,
		Models:     []models.ModelName{models.ModelClaudeHaiku, models.ModelGPT4oMini},
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.InsertABTest(ctx, test); err != nil {
		t.Fatalf("InsertABTest: %v", err)
	}

	result := &models.ABTestResult{
		ID:           uuid.New().String(),
		ABTestID:     test.ID,
		Model:        models.ModelClaudeHaiku,
		ResponseText: "answer",
		LatencyMs:    800,
		TokensUsed:   120,
		CostCents:    0.001,
	}
	if err := s.InsertABResult(ctx, result); err != nil {
		t.Fatalf("InsertABResult: %v", err)
	}

	got, err := s.GetABTest(ctx, test.ID)
	if err != nil {
		t.Fatalf("GetABTest: %v", err)
	}
	if len(got.Models) != 2 {
		t.Errorf("expected 2 models, got %d", len(got.Models))
	}
	if len(got.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got.Results))
	}
	if got.Results[0].Model != models.ModelClaudeHaiku {
		t.Errorf("unexpected result model %s", got.Results[0].Model)
	}
	if got.WinnerModel != nil {
		t.Error("expected no winner on fresh test")
	}

	if _, err := s.GetABTest(ctx, "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing test, got %v", err)
	}
}

func TestRecordVote(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	test := &models.ABTest{
		ID:         uuid.New().String(),
		Prompt:     "vote test",
		TaskType:   models.TaskQA,
		Complexity: 2.0,
		Models:     []models.ModelName{models.ModelClaudeHaiku, models.ModelGPT4oMini},
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.InsertABTest(ctx, test); err != nil {
		t.Fatalf("InsertABTest: %v", err)
	}

	// Vote before all models have finished is ignored.
	ok, err := s.RecordVote(ctx, test.ID, models.ModelClaudeHaiku)
	if err != nil {
		t.Fatalf("RecordVote: %v", err)
	}
	if ok {
		t.Error("expected early vote to be ignored")
	}

	for _, m := range test.Models {
		res := &models.ABTestResult{
			ID:       uuid.New().String(),
			ABTestID: test.ID,
			Model:    m,
		}
		if err := s.InsertABResult(ctx, res); err != nil {
			t.Fatalf("InsertABResult: %v", err)
		}
	}

	// Vote for a model outside the test's set is ignored.
	ok, err = s.RecordVote(ctx, test.ID, models.ModelDeepSeekV3)
	if err != nil {
		t.Fatalf("RecordVote: %v", err)
	}
	if ok {
		t.Error("expected vote for non-participant model to be ignored")
	}

	ok, err = s.RecordVote(ctx, test.ID, models.ModelClaudeHaiku)
	if err != nil {
		t.Fatalf("RecordVote: %v", err)
	}
	if !ok {
		t.Fatal("expected vote to be accepted once all models finished")
	}

	// Second vote is ignored, winner unchanged.
	ok, err = s.RecordVote(ctx, test.ID, models.ModelGPT4oMini)
	if err != nil {
		t.Fatalf("RecordVote: %v", err)
	}
	if ok {
		t.Error("expected duplicate vote to be ignored")
	}

	got, err := s.GetABTest(ctx, test.ID)
	if err != nil {
		t.Fatalf("GetABTest: %v", err)
	}
	if got.WinnerModel == nil || *got.WinnerModel != models.ModelClaudeHaiku {
		t.Errorf("expected winner %s, got %v", models.ModelClaudeHaiku, got.WinnerModel)
	}

	// Vote for an unknown test is ignored, not an error.
	ok, err = s.RecordVote(ctx, "nope", models.ModelClaudeHaiku)
	if err != nil {
		t.Fatalf("RecordVote: %v", err)
	}
	if ok {
		t.Error("expected vote on unknown test to be ignored")
	}
}

func TestSummaryAndCostComparison(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cheap := testRequest(models.ModelClaudeHaiku, 0.008, 1000)
	premium := testRequest(models.ModelClaudeSonnet, 0.30, 1000)
	for _, r := range []*models.Request{cheap, premium} {
		if err := s.InsertRequest(ctx, r); err != nil {
			t.Fatalf("InsertRequest: %v", err)
		}
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.TotalRequests != 2 {
		t.Errorf("expected 2 total requests, got %d", sum.TotalRequests)
	}
	if sum.ModelsUsed != 2 {
		t.Errorf("expected 2 models used, got %d", sum.ModelsUsed)
	}
	// 2000 tokens at the premium rate is 0.6 cents hypothetical.
	if sum.HypotheticalCostCents != 0.6 {
		t.Errorf("expected hypothetical 0.6, got %v", sum.HypotheticalCostCents)
	}
	if sum.CostSavingsPercent <= 0 {
		t.Errorf("expected positive savings, got %v", sum.CostSavingsPercent)
	}

	cc, err := s.CostComparison(ctx)
	if err != nil {
		t.Fatalf("CostComparison: %v", err)
	}
	if len(cc.ByModel) != 2 {
		t.Fatalf("expected 2 model rows, got %d", len(cc.ByModel))
	}
	if cc.ByModel[0].Model != models.ModelClaudeSonnet {
		t.Errorf("expected highest spend first, got %s", cc.ByModel[0].Model)
	}
	if cc.TotalHypotheticalCents != 0.6 {
		t.Errorf("expected hypothetical total 0.6, got %v", cc.TotalHypotheticalCents)
	}

	dist, err := s.ModelDistribution(ctx)
	if err != nil {
		t.Fatalf("ModelDistribution: %v", err)
	}
	if len(dist) != 2 {
		t.Fatalf("expected 2 distribution rows, got %d", len(dist))
	}
	if dist[0].Percentage != 50.0 {
		t.Errorf("expected 50%% share, got %v", dist[0].Percentage)
	}
}

func TestTimeseriesWindowBoundary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inside := testRequest(models.ModelGPT4oMini, 0.015, 1000)
	inside.CreatedAt = time.Now().UTC().AddDate(0, 0, -7)
	outside := testRequest(models.ModelGPT4oMini, 0.015, 1000)
	outside.CreatedAt = time.Now().UTC().AddDate(0, 0, -8)

	for _, r := range []*models.Request{inside, outside} {
		if err := s.InsertRequest(ctx, r); err != nil {
			t.Fatalf("InsertRequest: %v", err)
		}
	}

	points, err := s.Timeseries(ctx, 7)
	if err != nil {
		t.Fatalf("Timeseries: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected only the boundary-day bucket, got %d buckets", len(points))
	}
	wantDay := inside.CreatedAt.Format("2006-01-02")
	if points[0].Day != wantDay {
		t.Errorf("expected bucket for %s, got %s", wantDay, points[0].Day)
	}
}

func TestTimeseries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := testRequest(models.ModelClaudeHaiku, 0.01, 500)
	if err := s.InsertRequest(ctx, r); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}

	points, err := s.Timeseries(ctx, 7)
	if err != nil {
		t.Fatalf("Timeseries: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].Requests != 1 {
		t.Errorf("expected 1 request in today's bucket, got %d", points[0].Requests)
	}
}
