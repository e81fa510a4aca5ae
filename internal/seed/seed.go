// Package seed populates an empty database with a week of plausible demo
// traffic so the analytics views have something to show on first boot.
package seed

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/classify"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/route"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/store"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

const (
	requestCount = 223
	abTestCount  = 18
	daysBack     = 7
)

// promptTemplates hold realistic prompt shapes per task type, with {slot}
// placeholders filled from slotFillers.
var promptTemplates = map[models.TaskType][]string{
	models.TaskCode: {
		"Write a Python function to {action}",
		"Implement a {language} class for {concept}",
		"Debug this {language} code that {problem}",
		"Refactor the following {language} code for better performance",
		"Create an API endpoint in {framework} that {action}",
		"Write unit tests for a {concept} module in {language}",
		"How do I implement {pattern} pattern in {language}?",
	},
	models.TaskCreative: {
		"Write a short story about {topic}",
		"Compose a poem about {topic} in the style of {style}",
		"Write a blog post about {topic}",
		"Create a fictional dialogue between {character1} and {character2}",
		"Compose an email announcing {event}",
	},
	models.TaskMath: {
		"Solve the equation: {equation}",
		"Prove that {theorem}",
		"What is the probability of {mathEvent}?",
		"Compute the {transform} of f(x) = {function}",
	},
	models.TaskSummarization: {
		"Summarize the key points of {topic}",
		"Give me a TLDR of {documentType} about {topic}",
		"What are the main takeaways from {topic}?",
		"Provide a brief overview of {topic}",
	},
	models.TaskTranslation: {
		"How do you say '{phrase}' in {targetLang}?",
		"Translate this {documentType} from English to {targetLang}",
		"Convert this technical documentation to {targetLang}",
	},
	models.TaskQA: {
		"What is {concept}?",
		"Explain the difference between {concept1} and {concept2}",
		"How does {technology} work?",
		"What are the pros and cons of {approach}?",
		"Can you explain {concept} in simple terms?",
	},
	models.TaskMultiStep: {
		"Create a step-by-step guide to {action}",
		"Walk me through the process of {process}",
		"How do I set up a complete {system} from scratch?",
		"Design a workflow for {process}",
	},
}

var slotFillers = map[string][]string{
	"action":       {"sort a list", "parse JSON", "handle file uploads", "implement pagination", "validate emails", "build a REST API", "manage state"},
	"language":     {"Python", "JavaScript", "TypeScript", "Java", "Rust", "Go"},
	"concept":      {"binary search tree", "LRU cache", "graph traversal", "observer pattern", "microservices", "dependency injection", "neural networks"},
	"problem":      {"throws a TypeError", "has a memory leak", "runs too slowly", "fails on edge cases"},
	"framework":    {"FastAPI", "Express.js", "Django", "Flask", "Spring Boot"},
	"pattern":      {"singleton", "factory", "observer", "strategy", "decorator"},
	"topic":        {"artificial intelligence", "climate change", "remote work", "quantum computing", "cybersecurity", "digital privacy", "the future of education"},
	"style":        {"Shakespeare", "Emily Dickinson", "haiku", "free verse", "limerick"},
	"character1":   {"a scientist", "a philosopher", "an AI", "a time traveler"},
	"character2":   {"an artist", "a historian", "a child", "an alien"},
	"event":        {"a product launch", "a team milestone", "a company retreat"},
	"equation":     {"3x² - 12x + 9 = 0", "∫(x² + 2x)dx from 0 to 5", "lim(x→0) sin(x)/x"},
	"theorem":      {"the sum of angles in a triangle is 180°", "√2 is irrational", "there are infinitely many primes"},
	"mathEvent":    {"rolling two sixes in a row", "drawing three aces", "a hash collision in a 32-bit space"},
	"transform":    {"Fourier transform", "Laplace transform", "derivative"},
	"function":     {"x² + 3x - 7", "e^(-x²)", "sin(x)/x", "ln(x² + 1)"},
	"documentType": {"research paper", "article", "report", "whitepaper", "blog post"},
	"phrase":       {"Good morning", "Thank you very much", "Where is the library?", "How much does this cost?"},
	"targetLang":   {"Spanish", "French", "Japanese", "Chinese", "Korean", "Portuguese"},
	"technology":   {"Docker", "Kubernetes", "GraphQL", "WebAssembly", "gRPC"},
	"concept1":     {"REST", "SQL", "monolith", "TCP", "encryption"},
	"concept2":     {"GraphQL", "NoSQL", "microservices", "UDP", "hashing"},
	"approach":     {"serverless architecture", "monorepo", "test-driven development", "pair programming"},
	"process":      {"deploying to production", "setting up CI/CD", "migrating a database", "conducting a code review"},
	"system":       {"monitoring stack", "authentication system", "data pipeline", "containerized development environment"},
}

var slotPattern = regexp.MustCompile(`\{(\w+)\}`)

// Seeder generates demo traffic using the real classifier and routing table.
type Seeder struct {
	store store.Store
	rng   *rand.Rand
}

// New creates a seeder with a fixed random seed for reproducible demo data.
func New(st store.Store, seed int64) *Seeder {
	return &Seeder{store: st, rng: rand.New(rand.NewSource(seed))}
}

// Run seeds the database unless it already holds requests. It returns the
// number of requests present afterwards.
func (s *Seeder) Run(ctx context.Context) (int64, error) {
	existing, err := s.store.RequestCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking request count: %w", err)
	}
	if existing > 0 {
		return existing, nil
	}

	if err := s.seedRequests(ctx); err != nil {
		return 0, err
	}
	if err := s.seedABTests(ctx); err != nil {
		return 0, err
	}

	log.Printf("[INFO]  seeded %d requests and %d A/B tests", requestCount, abTestCount)
	return requestCount, nil
}

func (s *Seeder) seedRequests(ctx context.Context) error {
	// Roughly half the traffic is simple, which is what makes the routed
	// spend land well under the always-premium baseline.
	complexities := make([]float64, 0, requestCount)
	lowN := requestCount * 50 / 100
	medN := requestCount * 30 / 100
	for i := 0; i < lowN; i++ {
		complexities = append(complexities, s.uniform(1.0, 3.0))
	}
	for i := 0; i < medN; i++ {
		complexities = append(complexities, s.uniform(3.5, 6.0))
	}
	for len(complexities) < requestCount {
		complexities = append(complexities, s.uniform(6.5, 10.0))
	}
	s.rng.Shuffle(len(complexities), func(i, j int) {
		complexities[i], complexities[j] = complexities[j], complexities[i]
	})

	for i := 0; i < requestCount; i++ {
		taskType := s.pickTaskType()
		prompt := s.generatePrompt(taskType)
		complexity := math.Round(complexities[i]*10) / 10
		confidence := math.Round(s.uniform(0.55, 0.95)*1000) / 1000

		model, _ := route.Recommend(taskType, complexity)

		baseTokens := int64(50 + complexity*70)
		tokens := baseTokens + s.rng.Int63n(201)
		bounds := route.LatencyRanges[model]
		latency := bounds.MinMs + s.rng.Int63n(bounds.MaxMs-bounds.MinMs+1)

		req := &models.Request{
			ID:           uuid.New().String(),
			Prompt:       prompt,
			TaskType:     taskType,
			Complexity:   complexity,
			Confidence:   confidence,
			Model:        model,
			WasRouted:    true,
			ResponseText: fmt.Sprintf("[Seeded response for %s]", taskType),
			LatencyMs:    latency,
			TokensUsed:   tokens,
			CostCents:    route.CalculateCost(model, tokens),
			CreatedAt:    s.randomTimestamp(),
		}
		if err := s.store.InsertRequest(ctx, req); err != nil {
			return fmt.Errorf("seeding request %d: %w", i, err)
		}
	}
	return nil
}

func (s *Seeder) seedABTests(ctx context.Context) error {
	for i := 0; i < abTestCount; i++ {
		taskType := models.TaskTypes[s.rng.Intn(len(models.TaskTypes))]
		prompt := s.generatePrompt(taskType)
		cls := classify.Classify(prompt)

		contenders := s.sampleModels(2 + s.rng.Intn(2))
		test := &models.ABTest{
			ID:         uuid.New().String(),
			Prompt:     prompt,
			TaskType:   taskType,
			Complexity: cls.Complexity,
			Models:     contenders,
			CreatedAt:  s.randomTimestamp(),
		}
		if err := s.store.InsertABTest(ctx, test); err != nil {
			return fmt.Errorf("seeding ab test %d: %w", i, err)
		}

		for _, model := range contenders {
			tokens := 80 + s.rng.Int63n(521)
			bounds := route.LatencyRanges[model]
			result := &models.ABTestResult{
				ID:           uuid.New().String(),
				ABTestID:     test.ID,
				Model:        model,
				ResponseText: fmt.Sprintf("[Seeded A/B response for %s]", model),
				LatencyMs:    bounds.MinMs + s.rng.Int63n(bounds.MaxMs-bounds.MinMs+1),
				TokensUsed:   tokens,
				CostCents:    route.CalculateCost(model, tokens),
			}
			if err := s.store.InsertABResult(ctx, result); err != nil {
				return fmt.Errorf("seeding ab result: %w", err)
			}
		}

		// About 70% of seeded tests carry a vote.
		if s.rng.Float64() > 0.3 {
			winner := contenders[s.rng.Intn(len(contenders))]
			if _, err := s.store.RecordVote(ctx, test.ID, winner); err != nil {
				return fmt.Errorf("seeding vote: %w", err)
			}
		}
	}
	return nil
}

// taskTypeWeights shape the seeded traffic mix.
var taskTypeWeights = map[models.TaskType]float64{
	models.TaskCode:          0.19,
	models.TaskQA:            0.22,
	models.TaskCreative:      0.14,
	models.TaskSummarization: 0.13,
	models.TaskMath:          0.12,
	models.TaskMultiStep:     0.10,
	models.TaskTranslation:   0.10,
}

func (s *Seeder) pickTaskType() models.TaskType {
	r := s.rng.Float64()
	acc := 0.0
	for _, tt := range models.TaskTypes {
		acc += taskTypeWeights[tt]
		if r < acc {
			return tt
		}
	}
	return models.TaskQA
}

func (s *Seeder) generatePrompt(taskType models.TaskType) string {
	templates := promptTemplates[taskType]
	template := templates[s.rng.Intn(len(templates))]
	return slotPattern.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		options, ok := slotFillers[key]
		if !ok {
			return m
		}
		return options[s.rng.Intn(len(options))]
	})
}

func (s *Seeder) sampleModels(n int) []models.ModelName {
	pool := append([]models.ModelName(nil), models.AllModels...)
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n]
}

// randomTimestamp returns a UTC time in the trailing week, biased toward
// recent days and business hours.
func (s *Seeder) randomTimestamp() time.Time {
	now := time.Now().UTC()
	dayOffset := math.Pow(s.rng.Float64(), 0.7) * daysBack
	base := now.Add(-time.Duration(dayOffset * float64(24*time.Hour)))

	hourWeights := []float64{1, 1, 1, 1, 1, 1, 2, 3, 5, 8, 8, 7, 6, 7, 8, 8, 7, 5, 3, 2, 2, 1, 1, 1}
	total := 0.0
	for _, w := range hourWeights {
		total += w
	}
	r := s.rng.Float64() * total
	hour := 0
	for i, w := range hourWeights {
		r -= w
		if r < 0 {
			hour = i
			break
		}
	}

	return time.Date(base.Year(), base.Month(), base.Day(), hour, s.rng.Intn(60), s.rng.Intn(60), 0, time.UTC)
}

func (s *Seeder) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
