package domain

import "context"

// Chat message roles as sent to the completion provider.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one entry of the model-ready message sequence produced by
// prompt assembly.
type ChatMessage struct {
	Role    string
	Content string
}

// Match is a single vector-index hit used to ground a prompt.
type Match struct {
	Category string
	Text     string
	Score    float64
}

// Stream event kinds emitted by a ChatStreamer. The names follow the wire
// protocol the frontend consumes.
const (
	EventStart = "on_chat_model_start"
	EventDelta = "on_chat_model_stream"
	EventEnd   = "on_chat_model_end"
)

// StreamEvent is one lifecycle event of an in-flight completion.
// Content carries the incremental text on EventDelta and the full
// concatenated output on EventEnd. Err is set only on the terminal event of
// a failed stream; no EventEnd follows a failure.
type StreamEvent struct {
	Type    string
	Content string
	Err     error
}

// Embedder turns text into a query vector via the embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher returns the topK nearest snippets for a query vector.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// ChatStreamer drives the completion provider's incremental output. The
// returned channel is closed after the terminal event (EventEnd or an event
// with Err set). Implementations stop producing when ctx is canceled.
type ChatStreamer interface {
	Stream(ctx context.Context, messages []ChatMessage) (<-chan StreamEvent, error)
}
