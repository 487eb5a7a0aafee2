package retrieval_test

import (
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/retrieval"
)

var _ = Describe("Error", func() {
	It("matches the parent, the kind, and the cause", func() {
		err := error(&retrieval.Error{Kind: retrieval.ErrDecode, Err: io.ErrUnexpectedEOF})

		Expect(errors.Is(err, retrieval.ErrRetrieval)).To(BeTrue())
		Expect(errors.Is(err, retrieval.ErrDecode)).To(BeTrue())
		Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
		Expect(errors.Is(err, retrieval.ErrStatus)).To(BeFalse())
		Expect(err.Error()).To(Equal("retrieval response could not be decoded: unexpected EOF"))
	})

	It("renders the kind alone when there is no cause", func() {
		err := &retrieval.Error{Kind: retrieval.ErrStatus}
		Expect(err.Error()).To(Equal(retrieval.ErrStatus.Error()))
		Expect(errors.Is(err, retrieval.ErrRetrieval)).To(BeTrue())
	})
})
