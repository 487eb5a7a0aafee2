package remote_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	recalllogger "github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/retrieval"
	"github.com/papercomputeco/recall/pkg/retrieval/remote"
)

// searchBackend is a fake retrieval service recording the requests it receives.
type searchBackend struct {
	server   *httptest.Server
	requests atomic.Int32
	lastBody atomic.Value
	lastType atomic.Value
}

func newSearchBackend(handler func(w http.ResponseWriter, body map[string]any)) *searchBackend {
	b := &searchBackend{}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		defer GinkgoRecover()
		Expect(r.Method).To(Equal(http.MethodPost))
		Expect(r.URL.Path).To(Equal("/search"))

		raw, err := io.ReadAll(r.Body)
		Expect(err).NotTo(HaveOccurred())
		var body map[string]any
		Expect(json.Unmarshal(raw, &body)).To(Succeed())
		b.lastBody.Store(body)
		b.lastType.Store(r.Header.Get("Content-Type"))

		handler(w, body)
	}))
	DeferCleanup(b.server.Close)
	return b
}

func respondJSON(payload string) func(http.ResponseWriter, map[string]any) {
	return func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, payload)
	}
}

var _ = Describe("Retriever", func() {
	var (
		logger *slog.Logger
		logBuf *bytes.Buffer
		ctx    context.Context
	)

	BeforeEach(func() {
		logBuf = &bytes.Buffer{}
		logger = recalllogger.New(recalllogger.WithWriter(logBuf), recalllogger.WithDebug(true))
		ctx = context.Background()
	})

	newRetriever := func(url string, topK int, timeout time.Duration) *remote.Retriever {
		r, err := remote.New(remote.Config{
			APIURL:  url,
			Method:  retrieval.MethodDenseSmall,
			TopK:    topK,
			Timeout: timeout,
		}, logger)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return r
	}

	Describe("New", func() {
		It("requires an API URL", func() {
			_, err := remote.New(remote.Config{}, logger)
			Expect(err).To(MatchError(ContainSubstring("retrieval API URL is required")))
		})

		It("strips trailing slashes and applies defaults", func() {
			r := newRetriever("http://10.0.0.5:6002///", 0, 0)
			Expect(r.APIURL()).To(Equal("http://10.0.0.5:6002"))
			Expect(r.TopK()).To(Equal(remote.DefaultTopK))
			Expect(r.Timeout()).To(Equal(remote.DefaultTimeout))
			Expect(r.Method()).To(Equal(retrieval.MethodDenseSmall))
			Expect(logBuf.String()).To(ContainSubstring("initialized remote retriever"))
		})
	})

	Describe("NewForMethod", func() {
		DescribeTable("embeds the registered port in the base URL",
			func(method string, port int) {
				r, err := remote.NewForMethod(retrieval.DefaultRegistry(), "10.0.0.5", method, 10, 30*time.Second, logger)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.APIURL()).To(Equal(fmt.Sprintf("http://10.0.0.5:%d", port)))
				Expect(string(r.Method())).To(Equal(method))
			},
			Entry("bm25", "bm25", 6030),
			Entry("dense_small", "dense_small", 6002),
			Entry("dense_large", "dense_large", 6001),
			Entry("hybrid_small", "hybrid_small", 6024),
			Entry("hybrid_large", "hybrid_large", 6025),
		)

		It("fails with a configuration error naming the valid set", func() {
			_, err := remote.NewForMethod(retrieval.DefaultRegistry(), "10.0.0.5", "colbert", 10, time.Second, logger)
			Expect(errors.Is(err, retrieval.ErrUnknownMethod)).To(BeTrue())
			for _, name := range retrieval.DefaultRegistry().Names() {
				Expect(err.Error()).To(ContainSubstring(name))
			}
		})

		It("uses injected port overrides", func() {
			reg, err := retrieval.DefaultRegistry().WithOverrides(map[string]int{"bm25": 7777})
			Expect(err).NotTo(HaveOccurred())

			r, err := remote.NewForMethod(reg, "retrieval.internal", "bm25", 5, time.Second, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.APIURL()).To(Equal("http://retrieval.internal:7777"))
			Expect(r.TopK()).To(Equal(5))
		})

		It("brackets IPv6 hosts", func() {
			r, err := remote.NewForMethod(retrieval.DefaultRegistry(), "::1", "bm25", 5, time.Second, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.APIURL()).To(Equal("http://[::1]:6030"))
		})

		It("requires a host", func() {
			_, err := remote.NewForMethod(retrieval.DefaultRegistry(), "", "bm25", 5, time.Second, logger)
			Expect(err).To(MatchError(ContainSubstring("retrieval host is required")))
		})
	})

	Describe("Search", func() {
		It("posts the query and k as JSON", func() {
			backend := newSearchBackend(respondJSON(`{"results": []}`))
			r := newRetriever(backend.server.URL, 7, time.Second)

			docs, err := r.Search(ctx, "what is bm25?")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
			Expect(docs).NotTo(BeNil())

			Expect(backend.lastType.Load()).To(Equal("application/json"))
			Expect(backend.lastBody.Load()).To(Equal(map[string]any{
				"query": "what is bm25?",
				"k":     float64(7),
			}))
		})

		It("treats a missing results field as no matches", func() {
			backend := newSearchBackend(respondJSON(`{"took_ms": 3}`))
			r := newRetriever(backend.server.URL, 10, time.Second)

			docs, err := r.Search(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})

		It("maps N results in response order", func() {
			backend := newSearchBackend(respondJSON(`{"results": [
				{"score": 0.9, "document": {"page_content": "alpha", "metadata": {"source": "a.txt", "page": 1}}},
				{"score": 0.5, "document": {"page_content": "beta", "metadata": {"source": "b.txt"}}},
				{"score": 0.1, "document": {"page_content": "alpha", "metadata": {}}}
			]}`))
			r := newRetriever(backend.server.URL, 2, time.Second)

			docs, err := r.Search(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(3), "no client-side truncation to top_k")

			Expect(docs[0].Score).To(Equal(0.9))
			Expect(docs[0].Node.Text).To(Equal("alpha"))
			Expect(docs[0].Node.Metadata).To(Equal(map[string]any{"source": "a.txt", "page": json.Number("1")}))
			Expect(docs[1].Score).To(Equal(0.5))
			Expect(docs[1].Node.Text).To(Equal("beta"))
			Expect(docs[2].Score).To(Equal(0.1))

			ids := map[string]bool{}
			for i, d := range docs {
				Expect(d.Node.ID).To(HavePrefix(fmt.Sprintf("dense_small_%d_", i)))
				ids[d.Node.ID] = true
			}
			Expect(ids).To(HaveLen(3))
		})

		It("applies defaults for missing score, content, and metadata", func() {
			backend := newSearchBackend(respondJSON(`{"results": [{}, {"document": {"page_content": "x"}}]}`))
			r := newRetriever(backend.server.URL, 10, time.Second)

			docs, err := r.Search(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].Score).To(BeZero())
			Expect(docs[0].Node.Text).To(BeEmpty())
			Expect(docs[0].Node.Metadata).To(Equal(map[string]any{}))
			Expect(docs[1].Node.Text).To(Equal("x"))
			Expect(docs[1].Node.Metadata).NotTo(BeNil())
		})

		It("keeps large integer metadata exact", func() {
			backend := newSearchBackend(respondJSON(`{"results": [
				{"score": 1, "document": {"page_content": "chunk", "metadata": {"chunk_id": 12345678901234567891, "nested": {"offset": 9007199254740993}}}}
			]}`))
			r := newRetriever(backend.server.URL, 10, time.Second)

			docs, err := r.Search(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs[0].Node.Metadata["chunk_id"]).To(Equal(json.Number("12345678901234567891")))
			Expect(docs[0].Node.Metadata["nested"]).To(Equal(map[string]any{"offset": json.Number("9007199254740993")}))

			out, err := json.Marshal(docs[0].Node.Metadata)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(out)).To(ContainSubstring(`"chunk_id":12345678901234567891`))
		})

		DescribeTable("rejects the whole batch on null entries",
			func(payload string) {
				backend := newSearchBackend(respondJSON(payload))
				r := newRetriever(backend.server.URL, 10, time.Second)

				docs, err := r.Search(ctx, "q")
				Expect(docs).To(BeNil())
				Expect(errors.Is(err, retrieval.ErrDecode)).To(BeTrue())
				Expect(errors.Is(err, retrieval.ErrRetrieval)).To(BeTrue())
			},
			Entry("null result", `{"results": [null]}`),
			Entry("null document", `{"results": [{"document": null}]}`),
			Entry("null score and document", `{"results": [{"score": null, "document": null}]}`),
			Entry("null after a valid result", `{"results": [{"document": {"page_content": "ok"}}, null]}`),
		)

		DescribeTable("rejects data after the response object",
			func(payload string) {
				backend := newSearchBackend(respondJSON(payload))
				r := newRetriever(backend.server.URL, 10, time.Second)

				_, err := r.Search(ctx, "q")
				Expect(errors.Is(err, retrieval.ErrDecode)).To(BeTrue())
			},
			Entry("garbage", `{"results": []} trailing garbage`),
			Entry("second object", `{"results": []}{"results": []}`),
		)

		It("accepts trailing whitespace after the response object", func() {
			backend := newSearchBackend(respondJSON("{\"results\": []}\n\n"))
			r := newRetriever(backend.server.URL, 10, time.Second)

			docs, err := r.Search(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})

		It("returns identical output for identical calls", func() {
			backend := newSearchBackend(respondJSON(`{"results": [
				{"score": 1.5, "document": {"page_content": "stable", "metadata": {"k": "v"}}}
			]}`))
			r := newRetriever(backend.server.URL, 10, time.Second)

			first, err := r.Search(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			second, err := r.Search(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(first[0].Node.ID).To(Equal(remote.NodeID(retrieval.MethodDenseSmall, 0, "stable")))
		})

		It("returns a status error for non-2xx responses", func() {
			backend := newSearchBackend(func(w http.ResponseWriter, _ map[string]any) {
				http.Error(w, "index not loaded", http.StatusServiceUnavailable)
			})
			r := newRetriever(backend.server.URL, 10, time.Second)

			docs, err := r.Search(ctx, "q")
			Expect(docs).To(BeNil())
			Expect(errors.Is(err, retrieval.ErrRetrieval)).To(BeTrue())
			Expect(errors.Is(err, retrieval.ErrStatus)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("status 503"))
			Expect(err.Error()).To(ContainSubstring("index not loaded"))
		})

		It("returns a decode error when one result is malformed", func() {
			backend := newSearchBackend(respondJSON(`{"results": [
				{"score": 0.9, "document": {"page_content": "fine"}},
				{"score": "high", "document": {"page_content": "bad"}}
			]}`))
			r := newRetriever(backend.server.URL, 10, time.Second)

			_, err := r.Search(ctx, "q")
			Expect(errors.Is(err, retrieval.ErrDecode)).To(BeTrue())
		})

		It("returns a request error when the host refuses connections", func() {
			closed := httptest.NewServer(http.NotFoundHandler())
			url := closed.URL
			closed.Close()

			r := newRetriever(url, 10, time.Second)
			_, err := r.Search(ctx, "q")
			Expect(errors.Is(err, retrieval.ErrRequest)).To(BeTrue())
		})

		It("returns a request error when the response exceeds the timeout", func() {
			backend := newSearchBackend(func(w http.ResponseWriter, _ map[string]any) {
				time.Sleep(300 * time.Millisecond)
				fmt.Fprint(w, `{"results": []}`)
			})
			r := newRetriever(backend.server.URL, 10, 50*time.Millisecond)

			start := time.Now()
			_, err := r.Search(ctx, "q")
			Expect(errors.Is(err, retrieval.ErrRequest)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 300*time.Millisecond))
		})

		It("honors context cancellation", func() {
			backend := newSearchBackend(respondJSON(`{"results": []}`))
			r := newRetriever(backend.server.URL, 10, time.Second)

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := r.Search(cancelled, "q")
			Expect(errors.Is(err, retrieval.ErrRequest)).To(BeTrue())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})

	Describe("Retrieve", func() {
		It("returns the documents on success", func() {
			backend := newSearchBackend(respondJSON(`{"results": [{"score": 2, "document": {"page_content": "hit"}}]}`))
			r := newRetriever(backend.server.URL, 10, time.Second)

			docs := r.Retrieve(ctx, "q")
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Node.Text).To(Equal("hit"))
		})

		It("returns an empty sequence and logs when the service fails", func() {
			backend := newSearchBackend(func(w http.ResponseWriter, _ map[string]any) {
				w.WriteHeader(http.StatusInternalServerError)
			})
			r := newRetriever(backend.server.URL, 10, time.Second)

			docs := r.Retrieve(ctx, "q")
			Expect(docs).NotTo(BeNil())
			Expect(docs).To(BeEmpty())
			Expect(logBuf.String()).To(ContainSubstring("error calling retrieval API"))
		})

		It("returns an empty sequence against an unreachable host", func() {
			closed := httptest.NewServer(http.NotFoundHandler())
			url := closed.URL
			closed.Close()

			r := newRetriever(url, 10, time.Second)
			Expect(r.Retrieve(ctx, "q")).To(BeEmpty())
		})

		It("returns an empty sequence when a result is null", func() {
			backend := newSearchBackend(respondJSON(`{"results": [{"document": {"page_content": "ok"}}, null]}`))
			r := newRetriever(backend.server.URL, 10, time.Second)

			docs := r.Retrieve(ctx, "q")
			Expect(docs).NotTo(BeNil())
			Expect(docs).To(BeEmpty())
			Expect(logBuf.String()).To(ContainSubstring("error calling retrieval API"))
		})

		It("returns an empty sequence for a body that is not JSON", func() {
			backend := newSearchBackend(func(w http.ResponseWriter, _ map[string]any) {
				fmt.Fprint(w, strings.Repeat("<html>", 3))
			})
			r := newRetriever(backend.server.URL, 10, time.Second)

			Expect(r.Retrieve(ctx, "q")).To(BeEmpty())
			Expect(backend.requests.Load()).To(Equal(int32(1)), "no retries")
		})
	})
})
