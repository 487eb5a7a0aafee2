// Package retrieval defines the scored document model, the retrieval method
// registry, and the Retriever interface implemented by retrieval backends.
package retrieval

import "context"

// Method names a retrieval strategy served by a separate microservice.
type Method string

const (
	MethodBM25        Method = "bm25"
	MethodDenseSmall  Method = "dense_small"
	MethodDenseLarge  Method = "dense_large"
	MethodHybridSmall Method = "hybrid_small"
	MethodHybridLarge Method = "hybrid_large"
)

// Node is a unit of retrieved text plus its metadata.
type Node struct {
	// ID is unique within a single response.
	ID string `json:"id"`

	Text string `json:"text"`

	Metadata map[string]any `json:"metadata"`
}

// ScoredDocument pairs a retrieved Node with its relevance score.
type ScoredDocument struct {
	Node Node `json:"node"`

	// Score is the service-reported relevance, higher is more relevant.
	Score float64 `json:"score"`
}

// Retriever returns the scored documents matching a query.
type Retriever interface {
	// Method reports the retrieval method the retriever is bound to.
	Method() Method

	// Search runs the query. An empty slice with a nil error means no matches;
	// a non-nil error means the backend could not answer.
	Search(ctx context.Context, query string) ([]ScoredDocument, error)
}
