package models

// EventType names a logical stream event. Within one model stream the order
// is always: metadata, zero or more chunks, then exactly one terminal event
// (done or error). Arena streams additionally carry start, model_done, and
// complete events.
type EventType string

const (
	EventMetadata EventType = "metadata"
	EventChunk    EventType = "chunk"
	EventDone     EventType = "done"
	EventError    EventType = "error"

	// Arena-only event types.
	EventStart     EventType = "start"
	EventModelDone EventType = "model_done"
	EventComplete  EventType = "complete"
)

// Terminal reports whether the event type ends a per-model stream.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventError
}

// Event is one element of a completion or arena stream. Which fields are
// populated depends on Type; the zero values of the rest are omitted on the
// wire. Producers must never emit an event after a terminal one.
type Event struct {
	Type  EventType `json:"-"`
	Model ModelName `json:"model,omitempty"`

	// chunk
	Content string `json:"content,omitempty"`

	// metadata
	RequestID       string   `json:"request_id,omitempty"`
	TaskType        TaskType `json:"task_type,omitempty"`
	Complexity      float64  `json:"complexity,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
	RoutingReason   string   `json:"routing_reason,omitempty"`
	WasRouted       bool     `json:"was_routed,omitempty"`
	EstimatedTokens int64    `json:"estimated_tokens,omitempty"`

	// done / model_done
	ResponseText string  `json:"response_text,omitempty"`
	LatencyMs    int64   `json:"latency_ms,omitempty"`
	TokensUsed   int64   `json:"tokens_used,omitempty"`
	CostCents    float64 `json:"cost_cents,omitempty"`

	// error
	Error string `json:"error,omitempty"`

	// start
	TestID string      `json:"test_id,omitempty"`
	Models []ModelName `json:"models,omitempty"`
}
