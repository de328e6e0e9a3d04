package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/duynhne/chat-service/internal/core/domain"
)

// WeaviateSearcher implements domain.VectorSearcher against a Weaviate
// index. Knowledge snippets live in a single class with category and text
// properties.
type WeaviateSearcher struct {
	client *weaviate.Client
	class  string
}

// WeaviateOptions configures the vector index connection.
type WeaviateOptions struct {
	URL    string
	Scheme string
	Class  string
	APIKey string
}

// NewWeaviateSearcher creates a searcher for the configured class.
func NewWeaviateSearcher(opts WeaviateOptions) (*WeaviateSearcher, error) {
	cfg := weaviate.Config{
		Host:   opts.URL,
		Scheme: opts.Scheme,
	}
	// Accept a full URL in WEAVIATE_URL as well as a bare host.
	if strings.HasPrefix(opts.URL, "https://") {
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(opts.URL, "https://")
	} else if strings.HasPrefix(opts.URL, "http://") {
		cfg.Scheme = "http"
		cfg.Host = strings.TrimPrefix(opts.URL, "http://")
	}
	if opts.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: opts.APIKey}
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &WeaviateSearcher{client: client, class: opts.Class}, nil
}

// Search runs a nearVector query and returns the topK nearest snippets.
func (s *WeaviateSearcher) Search(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := []graphql.Field{
		{Name: "category"},
		{Name: "text"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	resp, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search: %s", resp.Errors[0].Message)
	}

	// The client returns dynamic JSON; round-trip through encoding/json to
	// get a typed view of the Get.<Class> results.
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal weaviate response: %w", err)
	}

	var parsed struct {
		Get map[string][]struct {
			Category   string `json:"category"`
			Text       string `json:"text"`
			Additional struct {
				Certainty float64 `json:"certainty"`
			} `json:"_additional"`
		} `json:"Get"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal weaviate response: %w", err)
	}

	results := parsed.Get[s.class]
	matches := make([]domain.Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, domain.Match{
			Category: r.Category,
			Text:     r.Text,
			Score:    r.Additional.Certainty,
		})
	}

	return matches, nil
}

var _ domain.VectorSearcher = (*WeaviateSearcher)(nil)
