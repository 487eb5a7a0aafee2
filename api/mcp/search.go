package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/api/search"
)

const searchToolName = "search"

func searchDescription(methods []string) string {
	d := "Search the document index through a remote retrieval service. Returns scored documents with their text and metadata."
	if len(methods) > 0 {
		d += " Available methods: " + strings.Join(methods, ", ") + "."
	}
	return d
}

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the search query text"`
	Method string `json:"method,omitempty" jsonschema:"retrieval method to use (default: the configured method)"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: the configured top_k)"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, search.SearchOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP search request",
		"query", input.Query,
		"method", input.Method,
		"top_k", input.TopK,
	)

	output, err := s.config.Searcher.Search(ctx, search.SearchInput{
		Query:  input.Query,
		Method: input.Method,
		TopK:   input.TopK,
	}, "mcp")
	if err != nil {
		logger.Error("MCP search failed", "error", err)
		return errorResult(fmt.Sprintf("Search failed: %v", err)), search.SearchOutput{}, nil
	}

	// Tools returning structured content also return serialized JSON in a
	// TextContent block for older clients
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", "error", err)
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), search.SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
