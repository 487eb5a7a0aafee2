package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/api/search"
	"github.com/papercomputeco/recall/pkg/retrieval"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MethodInfo describes one registered retrieval method.
type MethodInfo struct {
	Name string `json:"name"`
	Port int    `json:"port"`
}

// MethodsResponse lists the registry in name order.
type MethodsResponse struct {
	Methods []MethodInfo `json:"methods"`
	Count   int          `json:"count"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleMethods returns the method to port registry.
func (s *Server) handleMethods(c *fiber.Ctx) error {
	names := s.config.Registry.Names()
	methods := make([]MethodInfo, 0, len(names))
	for _, name := range names {
		methods = append(methods, MethodInfo{Name: name, Port: s.config.Registry[retrieval.Method(name)]})
	}

	return c.JSON(MethodsResponse{Methods: methods, Count: len(methods)})
}

// handleSearch handles POST /v1/search requests with a JSON body of
// {"query", "method", "top_k"}. Backend failures answer 502 rather than an
// empty result set.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	var input search.SearchInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	output, err := s.config.Searcher.Search(c.UserContext(), input, "api")
	switch {
	case err == nil:
		return c.JSON(output)
	case errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, search.ErrInvalidTopK),
		errors.Is(err, retrieval.ErrUnknownMethod):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, retrieval.ErrRetrieval):
		s.logger.Error("retrieval failed", "method", input.Method, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("search failed", "method", input.Method, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
}
