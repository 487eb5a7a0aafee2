// Package search provides shared search types and logic for querying the
// remote retrieval services. It is used by both the REST API endpoint and
// the MCP server tool.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/retrieval"
	"github.com/papercomputeco/recall/pkg/retrieval/remote"
)

var (
	// ErrEmptyQuery is returned when the query text is blank.
	ErrEmptyQuery = errors.New("query is required")

	// ErrInvalidTopK is returned for a negative top_k.
	ErrInvalidTopK = errors.New("top_k must be a positive integer")
)

// Factory builds a retriever bound to method that requests topK results.
type Factory func(method string, topK int) (retrieval.Retriever, error)

// RemoteFactory returns a Factory that resolves method ports in reg and
// targets host.
func RemoteFactory(reg retrieval.Registry, host string, timeout time.Duration, logger *slog.Logger) Factory {
	return func(method string, topK int) (retrieval.Retriever, error) {
		return remote.NewForMethod(reg, host, method, topK, timeout, logger)
	}
}

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query  string `json:"query"`
	Method string `json:"method,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

// SearchResult represents a single scored document.
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Method  string         `json:"method"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Config configures a Searcher.
type Config struct {
	Factory Factory

	// Publisher receives a retrieval event after every attempted search.
	Publisher eventstream.Publisher

	// DefaultMethod is used when SearchInput.Method is empty.
	DefaultMethod string

	// DefaultTopK is used when SearchInput.TopK is zero.
	DefaultTopK int

	// Host is recorded as the event source host.
	Host string

	Logger *slog.Logger
}

// Searcher runs searches against retrievers built on demand.
type Searcher struct {
	config Config
}

// NewSearcher validates c and creates a Searcher.
func NewSearcher(c Config) (*Searcher, error) {
	if c.Factory == nil {
		return nil, errors.New("retriever factory is required")
	}
	if c.Publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if c.DefaultMethod == "" {
		c.DefaultMethod = string(retrieval.MethodDenseSmall)
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = remote.DefaultTopK
	}
	return &Searcher{config: c}, nil
}

// Search validates input, queries the method's retriever and publishes the
// outcome. Unknown methods return an error wrapping retrieval.ErrUnknownMethod
// and backend failures one wrapping retrieval.ErrRetrieval.
func (s *Searcher) Search(ctx context.Context, input SearchInput, surface string) (*SearchOutput, error) {
	if input.Query == "" {
		return nil, ErrEmptyQuery
	}
	if input.TopK < 0 {
		return nil, ErrInvalidTopK
	}

	method := input.Method
	if method == "" {
		method = s.config.DefaultMethod
	}
	topK := input.TopK
	if topK == 0 {
		topK = s.config.DefaultTopK
	}

	s.config.Logger.Debug("search request",
		"surface", surface,
		"method", method,
		"top_k", topK,
	)

	retriever, err := s.config.Factory(method, topK)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	docs, err := retriever.Search(ctx, input.Query)
	completed := time.Now()

	s.publish(ctx, surface, eventstream.RetrievalRequest{
		Method:      method,
		Query:       input.Query,
		TopK:        topK,
		StartedAt:   started.UTC(),
		CompletedAt: completed.UTC(),
	}, len(docs), err)

	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", method, err)
	}

	return BuildSearchOutput(input.Query, method, docs), nil
}

// BuildSearchOutput converts scored documents into a SearchOutput, keeping
// their order.
func BuildSearchOutput(query, method string, docs []retrieval.ScoredDocument) *SearchOutput {
	results := make([]SearchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, SearchResult{
			ID:       doc.Node.ID,
			Score:    doc.Score,
			Text:     doc.Node.Text,
			Metadata: doc.Node.Metadata,
		})
	}

	return &SearchOutput{
		Query:   query,
		Method:  method,
		Results: results,
		Count:   len(results),
	}
}

func (s *Searcher) publish(ctx context.Context, surface string, req eventstream.RetrievalRequest, count int, searchErr error) {
	event := eventstream.NewRetrievalCompletedEvent(
		eventstream.EventSource{Surface: surface, Host: s.config.Host},
		req, count, searchErr,
	)
	if err := s.config.Publisher.PublishRetrieval(ctx, event); err != nil {
		s.config.Logger.Warn("failed to publish retrieval event",
			"event_id", event.EventID,
			"error", err,
		)
	}
}
