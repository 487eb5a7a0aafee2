// Package remote provides a retrieval.Retriever that forwards queries to an
// external retrieval microservice over HTTP.
package remote

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/retrieval"
	"github.com/papercomputeco/recall/pkg/utils"
)

const (
	// DefaultTopK is the number of results requested when Config.TopK is unset.
	DefaultTopK = 10

	// DefaultTimeout bounds a single search request when Config.Timeout is unset.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response body is kept in errors.
	maxErrorBody = 4096

	// maxLoggedQuery caps how much of the query text is written to debug logs.
	maxLoggedQuery = 100
)

// Config holds configuration for a remote Retriever.
type Config struct {
	// APIURL is the retrieval service base URL (e.g. "http://10.0.0.5:6002").
	// Trailing slashes are stripped.
	APIURL string

	// Method is the retrieval method the service implements. It is used for
	// logging and as the prefix of generated node IDs.
	Method retrieval.Method

	// TopK is the number of results requested per query.
	// Defaults to DefaultTopK if zero.
	TopK int

	// Timeout bounds each request. Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Retriever calls a retrieval service's /search endpoint. It is immutable
// after construction and safe for concurrent use.
type Retriever struct {
	apiURL     string
	method     retrieval.Method
	topK       int
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a remote retriever for the service at c.APIURL.
func New(c Config, logger *slog.Logger) (*Retriever, error) {
	apiURL := strings.TrimRight(c.APIURL, "/")
	if apiURL == "" {
		return nil, errors.New("retrieval API URL is required")
	}

	topK := c.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	r := &Retriever{
		apiURL:     apiURL,
		method:     c.Method,
		topK:       topK,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}

	logger.Info("initialized remote retriever",
		"method", string(r.method),
		"url", r.apiURL,
		"top_k", r.topK,
	)

	return r, nil
}

// NewForMethod resolves method's port in reg and creates a retriever for
// http://{host}:{port}. Unknown methods return an error wrapping
// retrieval.ErrUnknownMethod that lists the valid options.
func NewForMethod(reg retrieval.Registry, host, method string, topK int, timeout time.Duration, logger *slog.Logger) (*Retriever, error) {
	port, err := reg.Port(method)
	if err != nil {
		return nil, err
	}

	host = strings.TrimRight(host, "/")
	if host == "" {
		return nil, errors.New("retrieval host is required")
	}

	return New(Config{
		APIURL:  fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(port))),
		Method:  retrieval.Method(method),
		TopK:    topK,
		Timeout: timeout,
	}, logger)
}

// APIURL returns the service base URL.
func (r *Retriever) APIURL() string { return r.apiURL }

// Method returns the retrieval method the retriever is bound to.
func (r *Retriever) Method() retrieval.Method { return r.method }

// TopK returns the number of results requested per query.
func (r *Retriever) TopK() int { return r.topK }

// Timeout returns the per-request timeout.
func (r *Retriever) Timeout() time.Duration { return r.timeout }

// Search posts the query to {apiURL}/search and maps the response into scored
// documents in response order. Every failure is returned as a *retrieval.Error.
func (r *Retriever) Search(ctx context.Context, query string) ([]retrieval.ScoredDocument, error) {
	jsonBody, err := json.Marshal(searchRequest{Query: query, K: r.topK})
	if err != nil {
		return nil, &retrieval.Error{Kind: retrieval.ErrRequest, Err: fmt.Errorf("marshaling search request: %w", err)}
	}

	url := r.apiURL + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &retrieval.Error{Kind: retrieval.ErrRequest, Err: fmt.Errorf("creating search request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	r.logger.Debug("calling retrieval API",
		"url", url,
		"query", utils.Truncate(query, maxLoggedQuery),
	)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &retrieval.Error{Kind: retrieval.ErrRequest, Err: fmt.Errorf("sending search request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &retrieval.Error{
			Kind: retrieval.ErrStatus,
			Err:  fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	searchResp, err := decodeSearchResponse(resp.Body)
	if err != nil {
		kind := retrieval.ErrDecode
		if isTimeout(err) {
			kind = retrieval.ErrRequest
		}
		return nil, &retrieval.Error{Kind: kind, Err: fmt.Errorf("decoding search response: %w", err)}
	}

	docs, err := toScoredDocuments(r.method, searchResp.Results)
	if err != nil {
		return nil, &retrieval.Error{Kind: retrieval.ErrDecode, Err: err}
	}

	r.logger.Info("retrieved documents",
		"method", string(r.method),
		"count", len(docs),
		"top_k", r.topK,
	)

	return docs, nil
}

// Retrieve runs Search and degrades every failure to an empty result. The
// failure is only visible in the logs.
func (r *Retriever) Retrieve(ctx context.Context, query string) (docs []retrieval.ScoredDocument) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("unexpected error in remote retrieval",
				"method", string(r.method),
				"panic", fmt.Sprint(rec),
			)
			docs = []retrieval.ScoredDocument{}
		}
	}()

	docs, err := r.Search(ctx, query)
	if err != nil {
		r.logger.Error("error calling retrieval API",
			"method", string(r.method),
			"url", r.apiURL,
			"error", err,
		)
		return []retrieval.ScoredDocument{}
	}
	return docs
}

// decodeSearchResponse decodes exactly one JSON object from body. Metadata
// numbers are kept as json.Number so large integers survive unchanged.
func decodeSearchResponse(body io.Reader) (*searchResponse, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var searchResp searchResponse
	if err := dec.Decode(&searchResp); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after response object")
		}
		return nil, err
	}
	return &searchResp, nil
}

// toScoredDocuments converts wire results into scored documents, generating
// IDs of the form {method}_{index}_{contenthash}. A null result or document
// fails the whole batch.
func toScoredDocuments(method retrieval.Method, results []*searchResult) ([]retrieval.ScoredDocument, error) {
	docs := make([]retrieval.ScoredDocument, 0, len(results))
	for i, result := range results {
		if result == nil {
			return nil, fmt.Errorf("result %d is null", i)
		}
		if result.Document.null {
			return nil, fmt.Errorf("result %d has a null document", i)
		}

		metadata := result.Document.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}

		docs = append(docs, retrieval.ScoredDocument{
			Node: retrieval.Node{
				ID:       NodeID(method, i, result.Document.PageContent),
				Text:     result.Document.PageContent,
				Metadata: metadata,
			},
			Score: result.Score,
		})
	}
	return docs, nil
}

// NodeID builds the identifier for the result at index idx. Identical
// content at the same index always yields the same ID.
func NodeID(method retrieval.Method, idx int, content string) string {
	return fmt.Sprintf("%s_%d_%s", method, idx, contentHash(content))
}

// contentHash returns the first 16 hex characters of the SHA-256 of content.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ retrieval.Retriever = (*Retriever)(nil)
