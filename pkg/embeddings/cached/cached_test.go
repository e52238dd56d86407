package cached_test

import (
	"context"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemolabs/mnemo/pkg/embeddings/cached"
	"github.com/mnemolabs/mnemo/pkg/embeddings/mock"
)

type countingEmbedder struct {
	inner *mock.Embedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *countingEmbedder) Close() error { return c.inner.Close() }

var _ = Describe("Embedder", func() {
	var (
		counting *countingEmbedder
		embedder *cached.Embedder
	)

	BeforeEach(func() {
		counting = &countingEmbedder{inner: mock.NewEmbedder(16)}

		var err error
		embedder, err = cached.NewEmbedder(counting, cached.Config{MaxEntries: 128})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(embedder.Close()).To(Succeed())
	})

	It("embeds unseen text through the inner provider", func() {
		vec, err := embedder.Embed(context.Background(), "fresh text")

		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(16))
		Expect(counting.calls.Load()).To(Equal(int64(1)))
	})

	It("serves repeated text from the cache", func() {
		first, err := embedder.Embed(context.Background(), "repeated text")
		Expect(err).NotTo(HaveOccurred())

		second, err := embedder.Embed(context.Background(), "repeated text")
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(counting.calls.Load()).To(Equal(int64(1)))
	})

	It("returns a copy so callers cannot poison the cache", func() {
		first, err := embedder.Embed(context.Background(), "shared text")
		Expect(err).NotTo(HaveOccurred())

		first[0] = 42

		again, err := embedder.Embed(context.Background(), "shared text")
		Expect(err).NotTo(HaveOccurred())
		Expect(again[0]).NotTo(Equal(float32(42)))
	})

	It("exposes the inner embedder's dimensions", func() {
		Expect(embedder.Dimensions()).To(Equal(16))
	})

	It("rejects a nil inner embedder", func() {
		_, err := cached.NewEmbedder(nil, cached.Config{})
		Expect(err).To(HaveOccurred())
	})
})
