package api_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/api/search"
	recalllogger "github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/retrieval"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
)

var _ = Describe("Server", func() {
	var (
		server    *api.Server
		retriever *testutils.MockRetriever
		publisher *testutils.MockPublisher
		registry  retrieval.Registry
	)

	BeforeEach(func() {
		retriever = testutils.NewMockRetriever(retrieval.MethodHybridLarge,
			testutils.Doc("hybrid_large_0_a", "alpha", 0.9),
			testutils.Doc("hybrid_large_1_b", "beta", 0.3),
		)
		publisher = testutils.NewMockPublisher()
		registry = retrieval.DefaultRegistry()

		searcher, err := search.NewSearcher(search.Config{
			Factory: func(method string, _ int) (retrieval.Retriever, error) {
				if _, err := registry.Port(method); err != nil {
					return nil, err
				}
				return retriever, nil
			},
			Publisher: publisher,
			Logger:    recalllogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = api.NewServer(api.Config{
			ListenAddr: ":0",
			Registry:   registry,
			Searcher:   searcher,
		}, recalllogger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	doJSON := func(method, path, body string) (int, []byte) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := server.App().Test(req, -1)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return resp.StatusCode, raw
	}

	Describe("NewServer", func() {
		It("requires a searcher", func() {
			_, err := api.NewServer(api.Config{Registry: registry}, recalllogger.Nop())
			Expect(err).To(MatchError("searcher is required"))
		})
	})

	It("answers ping", func() {
		status, body := doJSON(http.MethodGet, "/ping", "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	It("lists methods in name order", func() {
		status, body := doJSON(http.MethodGet, "/v1/methods", "")
		Expect(status).To(Equal(http.StatusOK))

		var resp api.MethodsResponse
		Expect(json.Unmarshal(body, &resp)).To(Succeed())
		Expect(resp.Count).To(Equal(5))
		Expect(resp.Methods[0]).To(Equal(api.MethodInfo{Name: "bm25", Port: 6030}))
		Expect(resp.Methods[4]).To(Equal(api.MethodInfo{Name: "hybrid_small", Port: 6024}))
	})

	Describe("POST /v1/search", func() {
		It("returns results", func() {
			status, body := doJSON(http.MethodPost, "/v1/search", `{"query": "q", "method": "hybrid_large", "top_k": 2}`)
			Expect(status).To(Equal(http.StatusOK))

			var out search.SearchOutput
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Method).To(Equal("hybrid_large"))
			Expect(out.Count).To(Equal(2))
			Expect(out.Results[0].Text).To(Equal("alpha"))
			Expect(publisher.Events()).To(HaveLen(1))
			Expect(publisher.Events()[0].Source.Surface).To(Equal("api"))
		})

		It("returns 502 when the retrieval service fails", func() {
			retriever.Err = &retrieval.Error{Kind: retrieval.ErrStatus, Err: errors.New("status 500")}

			status, body := doJSON(http.MethodPost, "/v1/search", `{"query": "q"}`)
			Expect(status).To(Equal(http.StatusBadGateway))

			var resp api.ErrorResponse
			Expect(json.Unmarshal(body, &resp)).To(Succeed())
			Expect(resp.Error).To(ContainSubstring("status 500"))
		})

		DescribeTable("rejects bad input with 400",
			func(body, message string) {
				status, raw := doJSON(http.MethodPost, "/v1/search", body)
				Expect(status).To(Equal(http.StatusBadRequest))
				Expect(string(raw)).To(ContainSubstring(message))
			},
			Entry("empty query", `{"query": ""}`, "query is required"),
			Entry("negative top_k", `{"query": "q", "top_k": -3}`, "top_k must be a positive integer"),
			Entry("unknown method", `{"query": "q", "method": "colbert"}`, "unknown retrieval method"),
			Entry("malformed JSON", `{"query":`, "invalid request body"),
		)
	})

	It("mounts the MCP handler", func() {
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		resp, err := server.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).NotTo(Equal(http.StatusNotFound))
	})

	It("leaves MCP unmounted when disabled", func() {
		searcher, err := search.NewSearcher(search.Config{
			Factory:   func(string, int) (retrieval.Retriever, error) { return retriever, nil },
			Publisher: publisher,
			Logger:    recalllogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		s, err := api.NewServer(api.Config{Registry: registry, Searcher: searcher, DisableMCP: true}, recalllogger.Nop())
		Expect(err).NotTo(HaveOccurred())

		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/mcp", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
