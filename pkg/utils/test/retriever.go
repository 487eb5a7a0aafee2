// Package testutils provides mocks shared by recall test suites.
package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/recall/pkg/retrieval"
)

// MockRetriever is a test retriever that returns canned documents.
type MockRetriever struct {
	MethodName retrieval.Method
	Docs       []retrieval.ScoredDocument

	// Err is returned from every Search when set.
	Err error

	mu      sync.Mutex
	queries []string
}

func NewMockRetriever(method retrieval.Method, docs ...retrieval.ScoredDocument) *MockRetriever {
	return &MockRetriever{MethodName: method, Docs: docs}
}

func (m *MockRetriever) Method() retrieval.Method {
	return m.MethodName
}

func (m *MockRetriever) Search(_ context.Context, query string) ([]retrieval.ScoredDocument, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Docs == nil {
		return []retrieval.ScoredDocument{}, nil
	}
	return m.Docs, nil
}

// Queries returns every query received so far.
func (m *MockRetriever) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// Doc builds a scored document for fixtures.
func Doc(id, text string, score float64) retrieval.ScoredDocument {
	return retrieval.ScoredDocument{
		Node:  retrieval.Node{ID: id, Text: text, Metadata: map[string]any{}},
		Score: score,
	}
}
