package v1

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/chat-service/internal/core/domain"
	"github.com/duynhne/chat-service/middleware"
)

// systemPrompt is the fixed instruction heading every model conversation.
const systemPrompt = "You're an assistant. Bold key terms in your responses."

// Retrieved knowledge is concatenated in front of the current prompt before
// it reaches the model. The stored history keeps the raw prompt only.
const (
	contextHeader = "# RELEVANT KNOWLEDGE\n\n"
	contextFooter = "\n\n# PROMPT\n\n"
)

// maxTitleRunes bounds the session title seeded from the first prompt.
const maxTitleRunes = 64

// Frame is one wire-protocol frame of a streaming completion response.
type Frame struct {
	Event string `json:"event"`
	Data  string `json:"data,omitempty"`
}

// ChatService runs the session-authenticated streaming chat pipeline:
// lazy session creation, history loading, context retrieval, prompt
// assembly, and driving the provider's event stream while persisting the
// finished turn.
type ChatService struct {
	sessions domain.SessionRepository
	messages domain.MessageRepository
	embedder domain.Embedder
	searcher domain.VectorSearcher
	streamer domain.ChatStreamer
	topK     int
}

// NewChatService creates a new ChatService with the given dependencies.
func NewChatService(
	sessions domain.SessionRepository,
	messages domain.MessageRepository,
	embedder domain.Embedder,
	searcher domain.VectorSearcher,
	streamer domain.ChatStreamer,
	topK int,
) *ChatService {
	return &ChatService{
		sessions: sessions,
		messages: messages,
		embedder: embedder,
		searcher: searcher,
		streamer: streamer,
		topK:     topK,
	}
}

// ListSessions returns the user's sessions, newest first.
func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]domain.SessionRow, error) {
	ctx, span := middleware.StartSpan(ctx, "chat.list_sessions", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

// History returns the full message log of a session in creation order.
// A session that exists but has no messages yields an empty slice; a
// session that does not exist yields ErrSessionNotFound.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]domain.MessageRow, error) {
	ctx, span := middleware.StartSpan(ctx, "chat.history", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	exists, err := s.sessions.Exists(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("history for %q: %w", sessionID, ErrSessionNotFound)
	}

	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read history: %w", err)
	}

	return messages, nil
}

// StreamCompletion runs one conversation turn and delivers protocol frames
// through emit in provider emission order.
//
// The turn is committed in two steps keyed to the provider's lifecycle: the
// raw user prompt (never the context-augmented text) is appended to history
// on the start event, and the concatenated assistant output on the end
// event. A stream that fails or is canceled before the end event leaves the
// human message in place with no assistant row.
func (s *ChatService) StreamCompletion(ctx context.Context, userID, sessionID, prompt string, emit func(Frame) error) error {
	ctx, span := middleware.StartSpan(ctx, "chat.completion", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	if err := s.sessions.Ensure(ctx, sessionID, userID, sessionTitle(prompt)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("ensure session: %w", err)
	}

	history, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("read history: %w", err)
	}

	vector, err := s.embedder.Embed(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("embed prompt: %w", err)
	}

	matches, err := s.searcher.Search(ctx, vector, s.topK)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("retrieve context: %w", err)
	}
	span.SetAttributes(attribute.Int("retrieval.matches", len(matches)))

	messages := assemblePrompt(systemPrompt, history, formatContext(matches), prompt)

	events, err := s.streamer.Stream(ctx, messages)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("open completion stream: %w", err)
	}

	for evt := range events {
		if evt.Err != nil {
			// The partial turn is not committed: the human message from
			// the start event stays, no assistant row is written.
			span.RecordError(evt.Err)
			logger.Error().Err(evt.Err).Str("session_id", sessionID).Msg("Completion stream failed mid-flight")
			return fmt.Errorf("completion stream: %w", evt.Err)
		}

		switch evt.Type {
		case domain.EventStart:
			if err := s.messages.AppendHuman(ctx, sessionID, prompt); err != nil {
				span.RecordError(err)
				return fmt.Errorf("persist human message: %w", err)
			}
		case domain.EventEnd:
			if err := s.messages.AppendAI(ctx, sessionID, evt.Content); err != nil {
				span.RecordError(err)
				return fmt.Errorf("persist assistant message: %w", err)
			}
		}

		frame := Frame{Event: evt.Type}
		if evt.Type == domain.EventDelta {
			frame.Data = evt.Content
		}
		if err := emit(frame); err != nil {
			// Client is gone; stop consuming. The provider goroutine
			// notices the canceled context and exits.
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("Client disconnected mid-stream")
			return fmt.Errorf("emit frame: %w", err)
		}
	}

	return nil
}

// assemblePrompt builds the model-ready message sequence: system
// instructions, prior turns in original order, then the current prompt with
// the retrieved context block prepended. Context is attached to the
// outgoing turn only; it is never part of stored history.
func assemblePrompt(system string, history []domain.MessageRow, contextBlock, prompt string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleSystem, Content: system})

	for _, m := range history {
		role := domain.ChatRoleUser
		if m.Role == domain.RoleAI {
			role = domain.ChatRoleAssistant
		}
		messages = append(messages, domain.ChatMessage{Role: role, Content: m.Content})
	}

	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleUser, Content: contextBlock + prompt})
	return messages
}

// formatContext renders vector matches into the bounded context block.
func formatContext(matches []domain.Match) string {
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("Q: %s\nA: %s", m.Category, m.Text))
	}
	return contextHeader + strings.Join(lines, "\n") + contextFooter
}

// sessionTitle derives a session title from the first prompt.
func sessionTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > maxTitleRunes {
		return string(runes[:maxTitleRunes])
	}
	return prompt
}
