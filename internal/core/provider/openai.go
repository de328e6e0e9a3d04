// Package provider holds the external-collaborator clients: the embedding
// and completion provider (OpenAI API) and the vector index (Weaviate).
// Each client is long-lived, holds no per-request state, and is safe for
// concurrent use. The Logic layer sees them only through the capability
// interfaces in internal/core/domain.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/duynhne/chat-service/internal/core/domain"
)

// OpenAIClient implements domain.Embedder and domain.ChatStreamer against
// the OpenAI API.
type OpenAIClient struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
	temperature    float32
	maxTokens      int
}

// OpenAIOptions configures the completion and embedding models.
type OpenAIOptions struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
	Temperature    float32
	MaxTokens      int
}

// NewOpenAIClient creates a client for both embeddings and streaming chat
// completions.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	return &OpenAIClient{
		client:         openai.NewClient(opts.APIKey),
		embeddingModel: opts.EmbeddingModel,
		chatModel:      opts.ChatModel,
		temperature:    opts.Temperature,
		maxTokens:      opts.MaxTokens,
	}
}

// Embed returns the embedding vector for the given text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response contained no data")
	}

	return resp.Data[0].Embedding, nil
}

// Stream opens a streaming chat completion and translates the provider's
// incremental output into domain stream events. The returned channel is
// closed after the terminal event. Consuming stops when ctx is canceled:
// the underlying stream errors out and the goroutine exits without an end
// event.
func (c *OpenAIClient) Stream(ctx context.Context, messages []domain.ChatMessage) (<-chan domain.StreamEvent, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      true,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create completion stream: %w", err)
	}

	events := make(chan domain.StreamEvent)
	go func() {
		defer close(events)
		defer stream.Close()

		if !send(ctx, events, domain.StreamEvent{Type: domain.EventStart}) {
			return
		}

		var output []byte
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, events, domain.StreamEvent{Type: domain.EventEnd, Content: string(output)})
				return
			}
			if err != nil {
				send(ctx, events, domain.StreamEvent{Err: fmt.Errorf("receive completion chunk: %w", err)})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			output = append(output, delta...)
			if !send(ctx, events, domain.StreamEvent{Type: domain.EventDelta, Content: delta}) {
				return
			}
		}
	}()

	return events, nil
}

// send delivers an event unless the request has been canceled.
func send(ctx context.Context, events chan<- domain.StreamEvent, evt domain.StreamEvent) bool {
	select {
	case events <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

var (
	_ domain.Embedder     = (*OpenAIClient)(nil)
	_ domain.ChatStreamer = (*OpenAIClient)(nil)
)
