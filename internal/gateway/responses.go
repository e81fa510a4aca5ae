package gateway

import "github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"

// mockResponses holds the canned reply templates per task type. The mock
// gateway picks one and streams it word by word.
var mockResponses = map[models.TaskType][]string{
	models.TaskCode: {
		"Here's a clean implementation for your request:\n\n```python\ndef solution(data):\n    # Validate input\n    if not data:\n        return []\n\n    result = []\n    seen = set()\n    for item in data:\n        if item not in seen:\n            seen.add(item)\n            result.append(item)\n\n    return result\n```\n\nThis solution runs in O(n) time with O(n) space. The set-based lookup handles duplicates efficiently, and the explicit loop stays readable when the filtering logic grows more complex.",
		"I'll break down the implementation step by step:\n\n```javascript\nasync function fetchWithRetry(url, options = {}, maxRetries = 3) {\n  for (let attempt = 0; attempt < maxRetries; attempt++) {\n    try {\n      const response = await fetch(url, options);\n      if (!response.ok) throw new Error(`HTTP ${response.status}`);\n      return await response.json();\n    } catch (error) {\n      if (attempt === maxRetries - 1) throw error;\n      await new Promise(r => setTimeout(r, 1000 * Math.pow(2, attempt)));\n    }\n  }\n}\n```\n\nKey design decisions: exponential backoff prevents thundering herd issues, and we only retry on actual failures rather than business logic errors.",
	},
	models.TaskCreative: {
		"The morning light filtered through the old library's stained glass windows, casting kaleidoscope patterns across the worn oak floors. Eleanor traced her fingers along the spines of forgotten books, each one a doorway to a world that existed only in the space between reader and page.\n\n\"Every story is a conversation,\" her grandmother used to say. \"The author speaks, and the reader answers with their imagination.\"\n\nShe pulled a leather-bound volume from the shelf. The title had faded to ghost letters, barely visible in the amber light.\n\nThis was the story she had been searching for.",
		"In the garden of forgotten algorithms, where binary trees bloom with recursive elegance and hash maps spread their roots through fertile memory, there lived a small function named Lambda.\n\nLambda was not like the other functions. While they boasted of their long parameter lists and complex return types, Lambda carried only what was needed.\n\n\"Why do you travel so light?\" asked the heavyweight Constructor.\n\nLambda smiled. \"Because the best solutions are the ones that carry no more weight than the problem requires.\"",
	},
	models.TaskMath: {
		"Let me solve this step by step.\n\n**Step 1: Set up the equation**\nWe can express this as: f(x) = ax² + bx + c\n\n**Step 2: Apply the quadratic formula**\nx = (-b ± √(b² - 4ac)) / 2a\n\n**Step 3: Calculate the discriminant**\nΔ = b² - 4ac\n\nSince Δ > 0, we have two distinct real solutions.\n\n**Result:** The solution set is {x₁, x₂}, which can be verified by substituting back into the original equation. The sum of roots equals -b/a and the product equals c/a, consistent with Vieta's formulas.",
		"To approach this problem, we'll use a combination of algebraic manipulation and calculus.\n\n**Approach:** Taking the derivative and setting it to zero:\n\nf'(x) = 3x² - 12x + 9 = 0\n3(x - 1)(x - 3) = 0\n\nCritical points: x = 1 and x = 3\n\n**Second derivative test:**\nf''(1) = -6 < 0 → local maximum at x = 1\nf''(3) = 6 > 0 → local minimum at x = 3\n\nThe maximum value is f(1) = 1 - 6 + 9 + 2 = 6.",
	},
	models.TaskSummarization: {
		"Here are the key points:\n\n• **Main Thesis**: The central argument revolves around the intersection of technology and human behavior, emphasizing how digital tools reshape cognitive patterns rather than simply augmenting existing ones.\n\n• **Key Findings**: Research indicates a measurable shift in attention spans and information processing, though the effect is more nuanced than popular narratives suggest.\n\n• **Conclusion**: The relationship between technology and cognition is bidirectional — we shape our tools, and they shape us in return.",
		"**Summary:**\n\nThe document outlines three primary recommendations:\n\n1. **Restructure the workflow** to prioritize asynchronous communication, reducing meeting overhead by an estimated 30%.\n\n2. **Implement automated quality checks** at each pipeline stage, catching defects earlier where they cost 10x less to fix.\n\n3. **Adopt incremental delivery** over big-bang releases, allowing faster feedback loops and reducing deployment risk.\n\nThe projected impact is a 25% improvement in throughput with 15% cost reduction over 6 months.",
	},
	models.TaskTranslation: {
		"Here is the translation:\n\nThe text has been carefully translated while preserving the original tone and nuance. I've maintained the formal register of the source material and adapted idiomatic expressions to sound natural in the target language.\n\nKey translation choices:\n- Cultural references have been localized where appropriate\n- Technical terminology follows standard conventions in the target language\n- Sentence structure has been adjusted to follow natural word order patterns",
		"Translation complete. Here is the result with annotations:\n\n1. **Formal/informal register**: Maintained the formal tone of the original\n2. **Idiomatic expressions**: Adapted to equivalent expressions in the target language rather than translating literally\n3. **Proper nouns**: Kept in their original form as per standard practice\n4. **Technical terms**: Used the widely accepted translations in the field\n\nThe translation aims to read naturally while staying faithful to the source material's meaning and intent.",
	},
	models.TaskQA: {
		"Great question! Here's a clear explanation:\n\nThe concept works by establishing a relationship between input and output through a well-defined set of rules. Think of it like a recipe — you have ingredients (inputs), a process (the algorithm), and a result (output).\n\n**Key points:**\n- It operates on the principle of determinism: same input always produces same output\n- The efficiency depends on the data structure chosen for the underlying storage\n- Common use cases include search optimization, data validation, and pattern matching",
		"The answer depends on context, but here's the general explanation:\n\nAt its core, this works through a layered architecture where each layer has a specific responsibility. The bottom layer handles raw data, the middle layer manages business logic, and the top layer handles presentation.\n\n**Why it matters:**\n1. Separation of concerns makes the system easier to maintain\n2. Each layer can be tested independently\n3. Changes in one layer don't cascade through the entire system",
	},
	models.TaskMultiStep: {
		"Here's a comprehensive step-by-step guide:\n\n## Phase 1: Setup & Configuration\n1. Initialize the project structure with the required dependencies\n2. Configure the environment variables and connection settings\n\n## Phase 2: Core Implementation\n3. Build the data models and validation layer\n4. Implement the core business logic\n5. Create the API endpoints with proper error handling\n\n## Phase 3: Testing & Deployment\n6. Write unit tests for critical paths\n7. Set up CI/CD for automated deployment\n8. Deploy to staging, verify, then promote to production\n\n**Pro tip:** Keep a checklist and verify each step before moving to the next. It's much easier to fix issues in the current phase than to debug them three phases later.",
		"Let me break this down into manageable steps:\n\n### Step 1: Analysis\nAudit the existing system, identify bottlenecks, and document the key pain points.\n\n### Step 2: Design\nCreate a solution architecture that addresses each identified issue, covering scalability, integration points, and data migration.\n\n### Step 3: Implementation\nBuild iteratively: core functionality first, edge cases second, performance third.\n\n### Step 4: Validation\nTest each component individually, then as an integrated system, with realistic data volumes.\n\n### Step 5: Rollout\nDeploy gradually using a phased approach. Monitor key metrics at each stage and keep a rollback plan ready.",
	},
}

// mockResponse picks a canned reply for the task type. The index comes from
// the mock's random source so runs stay reproducible under a fixed seed.
func mockResponse(taskType models.TaskType, pick int) string {
	templates, ok := mockResponses[taskType]
	if !ok {
		templates = mockResponses[models.TaskQA]
	}
	return templates[pick%len(templates)]
}
