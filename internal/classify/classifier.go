// Package classify implements the rule-based prompt classifier.
//
// Classification is signal-based, not model-based: six numeric signals are
// extracted from the raw prompt text and combined into a task type, a 1-10
// complexity score, and a confidence value. The pipeline is pure and
// deterministic so identical prompts always classify identically.
package classify

import (
	"math"
	"regexp"
	"strings"

	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// taskProfile holds the detection rules for one task type.
type taskProfile struct {
	keywords []string
	patterns []*regexp.Regexp
	weight   float64
}

var taskProfiles = map[models.TaskType]taskProfile{
	models.TaskCode: {
		keywords: []string{
			"function", "code", "program", "implement", "debug", "refactor",
			"algorithm", "api", "class", "method", "variable", "loop",
			"syntax", "compile", "runtime", "database", "query", "sql",
			"python", "javascript", "typescript", "java", "rust", "golang",
			"html", "css", "react", "django", "flask", "fastapi",
		},
		patterns: compile(
			`write\s+(?:a\s+)?(?:python|javascript|java|c\+\+|rust|go|typescript)`,
			`(?:fix|debug|refactor)\s+(?:this|the|my)\s+code`,
			`implement\s+(?:a\s+)?(?:function|class|method|api|endpoint)`,
			"```[\\s\\S]*```",
			`how\s+(?:do|can|to)\s+(?:i\s+)?(?:code|program|implement)`,
		),
		weight: 1.0,
	},
	models.TaskCreative: {
		keywords: []string{
			"write", "story", "poem", "essay", "creative", "fiction",
			"character", "narrative", "dialogue", "metaphor", "imagine",
			"compose", "draft", "blog", "article", "screenplay", "lyric",
		},
		patterns: compile(
			`write\s+(?:a\s+)?(?:story|poem|essay|article|blog|screenplay)`,
			`(?:creative|fiction|narrative)\s+writing`,
			`imagine\s+(?:a|that|if)`,
			`compose\s+(?:a\s+)?(?:poem|letter|song|email)`,
		),
		weight: 1.0,
	},
	models.TaskMath: {
		keywords: []string{
			"calculate", "solve", "equation", "math", "algebra", "calculus",
			"probability", "statistics", "integral", "derivative", "proof",
			"theorem", "formula", "geometric", "trigonometry", "matrix",
			"vector", "optimization", "linear", "quadratic",
		},
		patterns: compile(
			`(?:solve|calculate|compute|evaluate|find)\s+(?:the|this|for)`,
			`\d+\s*[\+\-\*\/\^]\s*\d+`,
			`(?:integral|derivative|limit)\s+of`,
			`(?:prove|show)\s+that`,
			`what\s+is\s+\d+`,
		),
		weight: 1.0,
	},
	models.TaskSummarization: {
		keywords: []string{
			"summarize", "summary", "tldr", "brief", "condense", "overview",
			"key points", "main ideas", "recap", "digest", "abstract",
			"shorten", "highlights",
		},
		patterns: compile(
			`(?:summarize|sum up|give\s+(?:a|me)\s+(?:a\s+)?summary)`,
			`(?:tldr|tl;dr|too\s+long)`,
			`(?:key|main|important)\s+(?:points|ideas|takeaways)`,
			`(?:brief|short|concise)\s+(?:overview|summary|description)`,
		),
		weight: 1.0,
	},
	models.TaskTranslation: {
		keywords: []string{
			"translate", "translation", "convert", "language", "spanish",
			"french", "german", "chinese", "japanese", "korean", "arabic",
			"portuguese", "italian", "russian", "hindi", "localize",
		},
		patterns: compile(
			`translate\s+(?:this|the|following|into|to|from)`,
			`(?:from|into|to)\s+(?:english|spanish|french|german|chinese|japanese|korean|arabic|portuguese|italian|russian|hindi)`,
			`(?:in|to)\s+\w+\s+(?:language|translation)`,
			`how\s+(?:do\s+you\s+)?say\s+.+\s+in\s+\w+`,
		),
		weight: 1.0,
	},
	models.TaskQA: {
		keywords: []string{
			"what", "who", "where", "when", "why", "how", "explain",
			"define", "describe", "tell", "meaning", "difference",
			"compare", "example", "does", "is", "are", "can",
		},
		patterns: compile(
			`^(?:what|who|where|when|why|how)\s+`,
			`(?:explain|describe|define)\s+(?:the|what|how)`,
			`what\s+(?:is|are|does|do)\s+`,
			`(?:can|could)\s+you\s+(?:explain|tell|describe)`,
			`(?:difference|comparison)\s+between`,
		),
		// QA keywords are common English, so they count for less.
		weight: 0.8,
	},
	models.TaskMultiStep: {
		keywords: []string{
			"step", "steps", "first", "then", "next", "finally",
			"process", "workflow", "pipeline", "plan", "strategy",
			"guide", "tutorial", "walkthrough", "instructions", "procedure",
		},
		patterns: compile(
			`step[\s-]by[\s-]step`,
			`(?:first|then|next|finally|after\s+that)`,
			`(?:create|build|design|develop)\s+(?:a\s+)?(?:complete|full|entire)`,
			`(?:how\s+to|guide\s+(?:to|for|on))\s+(?:build|create|set\s+up|deploy)`,
			`(?:plan|strategy|roadmap)\s+for`,
		),
		weight: 1.0,
	},
}

// reasoningWords mark multi-clause or analytical language.
var reasoningWords = []string{
	"because", "therefore", "however", "although", "whereas",
	"if", "then", "else", "unless", "assuming",
	"compare", "contrast", "analyze", "evaluate", "assess",
	"pros and cons", "trade-off", "implications", "consequences",
	"on the other hand", "alternatively", "furthermore", "moreover",
	"considering", "given that", "in light of",
}

// domainVocab holds technical vocabulary per specialist domain.
var domainVocab = [][]string{
	{"diagnosis", "symptom", "treatment", "patient", "clinical", "pathology",
		"pharmaceutical", "dosage", "prognosis", "etiology", "comorbidity"},
	{"jurisdiction", "statute", "liability", "plaintiff", "defendant",
		"precedent", "tort", "breach", "contractual", "indemnity", "arbitration"},
	{"portfolio", "derivative", "hedge", "amortization", "equity",
		"dividend", "liquidity", "volatility", "arbitrage", "securities"},
	{"hypothesis", "methodology", "empirical", "quantitative", "peer-reviewed",
		"replication", "variance", "coefficient", "correlation", "longitudinal"},
}

// taskBaseComplexity is the inherent complexity per task type.
var taskBaseComplexity = map[models.TaskType]float64{
	models.TaskCode:          6.0,
	models.TaskCreative:      5.0,
	models.TaskMath:          7.0,
	models.TaskSummarization: 3.0,
	models.TaskTranslation:   4.0,
	models.TaskQA:            3.0,
	models.TaskMultiStep:     7.0,
}

var contextRefs = []string{"above", "previous", "earlier", "mentioned", "as shown", "given the"}

// Signal names, also the keys of Classification.Signals.
const (
	SignalTokenLength   = "token_length"
	SignalTaskTypeMatch = "task_type_match"
	SignalReasoning     = "reasoning_depth"
	SignalDomain        = "domain_specificity"
	SignalContext       = "context_needs"
	SignalVocabulary    = "vocabulary_complexity"
)

// signalOrder fixes the reduction order so float summation is deterministic.
var signalOrder = []string{
	SignalTokenLength, SignalTaskTypeMatch, SignalReasoning,
	SignalDomain, SignalContext, SignalVocabulary,
}

// signalWeights combine the six signals into the complexity score.
var signalWeights = map[string]float64{
	SignalTokenLength:   0.20,
	SignalTaskTypeMatch: 0.15,
	SignalReasoning:     0.25,
	SignalDomain:        0.15,
	SignalContext:       0.15,
	SignalVocabulary:    0.10,
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// DetectTaskType scores the prompt against all seven task profiles and
// returns the winner plus a confidence value in [0,1]. Confidence is the
// normalized margin between the winning score and the runner-up. Ties are
// broken by the fixed priority order of models.TaskTypes. A prompt with no
// signal at all defaults to qa with low confidence.
func DetectTaskType(prompt string) (models.TaskType, float64) {
	lower := strings.ToLower(prompt)

	var top, second float64
	topType := models.TaskQA
	for _, tt := range models.TaskTypes {
		profile := taskProfiles[tt]
		hits := 0.0
		for _, kw := range profile.keywords {
			if strings.Contains(lower, kw) {
				hits += 1.0
			}
		}
		for _, pat := range profile.patterns {
			if pat.MatchString(lower) {
				hits += 2.0
			}
		}
		score := hits * profile.weight
		// Strict comparison keeps the earlier (higher priority) type on ties.
		if score > top {
			second = top
			top = score
			topType = tt
		} else if score > second {
			second = score
		}
	}

	if top == 0 {
		return models.TaskQA, 0.3
	}
	confidence := top / (top + second + 0.001)
	return topType, round3(math.Min(1.0, confidence))
}

// ExtractSignals computes the six complexity signals, each scaled to [0,10].
func ExtractSignals(prompt string, taskType models.TaskType, confidence float64) map[string]float64 {
	words := strings.Fields(prompt)
	wordCount := len(words)
	lower := strings.ToLower(prompt)

	tokenLength := math.Min(10.0, float64(wordCount)/50.0*10.0)

	taskTypeMatch := taskBaseComplexity[taskType] * confidence

	reasoningHits := 0
	for _, w := range reasoningWords {
		if strings.Contains(lower, w) {
			reasoningHits++
		}
	}
	reasoningDepth := math.Min(10.0, float64(reasoningHits)*1.5)

	domainHits := 0
	for _, terms := range domainVocab {
		for _, t := range terms {
			if strings.Contains(lower, t) {
				domainHits++
			}
		}
	}
	domainSpecificity := math.Min(10.0, float64(domainHits)*2.5)

	contextScore := 0.0
	for _, ref := range contextRefs {
		if strings.Contains(lower, ref) {
			contextScore += 2.0
		}
	}
	if strings.Count(prompt, "\n") > 3 {
		contextScore += 2.0
	}
	if wordCount > 200 {
		contextScore += 3.0
	}
	contextNeeds := math.Min(10.0, contextScore)

	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLen := float64(totalLen) / math.Max(1, float64(wordCount))
	vocabulary := math.Max(0.0, math.Min(10.0, (avgWordLen-3.0)*2.5))

	return map[string]float64{
		SignalTokenLength:   round2(tokenLength),
		SignalTaskTypeMatch: round2(taskTypeMatch),
		SignalReasoning:     round2(reasoningDepth),
		SignalDomain:        round2(domainSpecificity),
		SignalContext:       round2(contextNeeds),
		SignalVocabulary:    round2(vocabulary),
	}
}

// ComputeComplexity reduces the signals to a single score clamped to [1,10]
// and rounded to one decimal place.
func ComputeComplexity(signals map[string]float64) float64 {
	raw := 0.0
	for _, name := range signalOrder {
		raw += signals[name] * signalWeights[name]
	}
	return math.Max(1.0, math.Min(10.0, round1(raw)))
}

// Classify runs the full pipeline: task type, signals, and complexity.
// RecommendedModel and RoutingReason are filled in by the routing table.
func Classify(prompt string) models.Classification {
	taskType, confidence := DetectTaskType(prompt)
	signals := ExtractSignals(prompt, taskType, confidence)
	return models.Classification{
		TaskType:   taskType,
		Complexity: ComputeComplexity(signals),
		Confidence: confidence,
		Signals:    signals,
	}
}

// DominantSignal returns the name of the strongest signal, used in the
// human-readable routing reason.
func DominantSignal(signals map[string]float64) string {
	best := SignalTokenLength
	bestVal := math.Inf(-1)
	for _, name := range signalOrder {
		if v, ok := signals[name]; ok && v > bestVal {
			best = name
			bestVal = v
		}
	}
	return best
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
