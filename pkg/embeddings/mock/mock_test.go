package mock_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemolabs/mnemo/pkg/embeddings/mock"
)

var _ = Describe("Embedder", func() {
	var embedder *mock.Embedder

	BeforeEach(func() {
		embedder = mock.NewEmbedder(0)
	})

	It("produces vectors of the configured width", func() {
		vec, err := embedder.Embed(context.Background(), "customer prefers email")

		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(mock.DefaultDimensions))
		Expect(embedder.Dimensions()).To(Equal(mock.DefaultDimensions))
	})

	It("is deterministic for identical text", func() {
		first, err := embedder.Embed(context.Background(), "same text")
		Expect(err).NotTo(HaveOccurred())

		second, err := embedder.Embed(context.Background(), "same text")
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
	})

	It("produces distinct vectors for distinct text", func() {
		first, err := embedder.Embed(context.Background(), "prefers email")
		Expect(err).NotTo(HaveOccurred())

		second, err := embedder.Embed(context.Background(), "prefers phone")
		Expect(err).NotTo(HaveOccurred())

		Expect(second).NotTo(Equal(first))
	})

	It("returns unit vectors", func() {
		vec, err := embedder.Embed(context.Background(), "normalize me")
		Expect(err).NotTo(HaveOccurred())

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		Expect(math.Sqrt(norm)).To(BeNumerically("~", 1.0, 1e-5))
	})

	It("honors context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := embedder.Embed(ctx, "too late")

		Expect(err).To(MatchError(context.Canceled))
	})

	It("honors a custom width", func() {
		narrow := mock.NewEmbedder(8)

		vec, err := narrow.Embed(context.Background(), "narrow")

		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(8))
	})
})
