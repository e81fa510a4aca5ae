// Package gateway implements the provider gateway abstraction.
//
// A Gateway turns one (model, prompt) pair into an ordered event stream:
// exactly one metadata event, zero or more chunk events, then exactly one
// terminal event (done or error). Nothing is emitted after a terminal event,
// and cancelling the context releases the underlying work without further
// emissions. Two interchangeable backends exist: Live forwards to the
// OpenRouter completion API, Mock produces deterministic word-paced
// simulations. The rest of the system never branches on which is active.
package gateway

import (
	"context"
	"strings"

	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// Gateway is the streaming contract shared by both backends. The returned
// channel is closed after the terminal event.
type Gateway interface {
	Stream(ctx context.Context, model models.ModelName, taskType models.TaskType, prompt string) <-chan models.Event
}

// EstimateTokens gives a rough token estimate for a text: ~0.75 tokens per
// word with a floor of 10.
func EstimateTokens(text string) int64 {
	n := int64(float64(len(strings.Fields(text))) * 0.75)
	if n < 10 {
		return 10
	}
	return n
}

// emit delivers ev unless the consumer has gone away. It returns false when
// the context is done, signalling the producer to stop.
func emit(ctx context.Context, out chan<- models.Event, ev models.Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
