// Package api provides an HTTP gateway in front of the remote retrieval services.
package api

import (
	"github.com/papercomputeco/recall/api/search"
	"github.com/papercomputeco/recall/pkg/retrieval"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// Registry is reported by /v1/methods and advertised to MCP clients
	Registry retrieval.Registry

	// Searcher runs queries for /v1/search and the MCP search tool
	Searcher *search.Searcher

	// DisableMCP leaves /mcp unmounted
	DisableMCP bool
}
