package episodic_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemolabs/mnemo/pkg/embeddings/mock"
	"github.com/mnemolabs/mnemo/pkg/episodic"
	"github.com/mnemolabs/mnemo/pkg/memory"
	"github.com/mnemolabs/mnemo/pkg/vector"
	"github.com/mnemolabs/mnemo/pkg/vector/inmemory"
)

// sameDomainAuthorizer allows same-domain reads plus explicitly granted
// (requester, record) pairs.
type sameDomainAuthorizer struct {
	granted map[[2]string]bool
}

func (a *sameDomainAuthorizer) AuthorizeRead(ctx context.Context, requester, record string) (bool, error) {
	if requester == record {
		return true, nil
	}
	return a.granted[[2]string{requester, record}], nil
}

func (a *sameDomainAuthorizer) grant(requester, record string) {
	if a.granted == nil {
		a.granted = make(map[[2]string]bool)
	}
	a.granted[[2]string{requester, record}] = true
}

var _ = Describe("Episodic Layer", func() {
	var (
		ctx   context.Context
		index *inmemory.Index
		auth  *sameDomainAuthorizer
		layer *episodic.Layer
	)

	record := func(content, domain string, importance float64) memory.Record {
		return memory.Record{
			Content:    content,
			Domain:     domain,
			Importance: importance,
			Context:    map[string]string{memory.ContextSource: "conversation"},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		index = inmemory.NewIndex()
		auth = &sameDomainAuthorizer{}

		var err error
		layer, err = episodic.NewLayer(episodic.Config{
			Index:      index,
			Embedder:   mock.NewEmbedder(0),
			Authorizer: auth,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Store", func() {
		It("assigns an ID and timestamps the record", func() {
			id, err := layer.Store(ctx, record("met the new team lead", "professional", 0.7))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			entry, err := index.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Record.CreatedAt).NotTo(BeZero())
			Expect(entry.Record.Kind).To(Equal(memory.KindEpisodic))
			Expect(entry.Record.Consolidated).To(BeFalse())
		})

		It("injects the domain into the record context", func() {
			id, err := layer.Store(ctx, record("met the new team lead", "professional", 0.7))
			Expect(err).NotTo(HaveOccurred())

			entry, err := index.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Record.Context[memory.ContextDomain]).To(Equal("professional"))
		})

		It("does not mutate the caller's record", func() {
			rec := record("met the new team lead", "professional", 0.7)
			_, err := layer.Store(ctx, rec)
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.ID).To(BeEmpty())
			Expect(rec.Context).NotTo(HaveKey(memory.ContextDomain))
		})

		DescribeTable("validation",
			func(mutate func(*memory.Record), wantField string) {
				rec := record("met the new team lead", "professional", 0.7)
				mutate(&rec)

				_, err := layer.Store(ctx, rec)

				var validationErr *memory.ValidationError
				Expect(errors.As(err, &validationErr)).To(BeTrue())
				Expect(validationErr.Field).To(Equal(wantField))
			},
			Entry("empty content", func(r *memory.Record) { r.Content = "" }, "content"),
			Entry("empty domain", func(r *memory.Record) { r.Domain = "" }, "domain"),
			Entry("importance above one", func(r *memory.Record) { r.Importance = 1.2 }, "importance"),
			Entry("importance below zero", func(r *memory.Record) { r.Importance = -0.1 }, "importance"),
			Entry("missing source context", func(r *memory.Record) { r.Context = map[string]string{} }, "context.source"),
		)
	})

	Describe("Query", func() {
		BeforeEach(func() {
			_, err := layer.Store(ctx, record("prefers tea over coffee in the morning", "personal", 0.6))
			Expect(err).NotTo(HaveOccurred())
			_, err = layer.Store(ctx, record("quarterly report due next friday", "professional", 0.8))
			Expect(err).NotTo(HaveOccurred())
			_, err = layer.Store(ctx, record("dentist appointment on tuesday", "personal", 0.4))
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns same-domain records by similarity", func() {
			results, err := layer.Query(ctx, episodic.Query{
				Text:            "prefers tea over coffee in the morning",
				RequesterDomain: "personal",
				K:               5,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeEmpty())
			Expect(results[0].Record.Content).To(Equal("prefers tea over coffee in the morning"))
			Expect(results[0].Similarity).To(BeNumerically("~", 1.0, 1e-6))
		})

		It("silently excludes unauthorized cross-domain records", func() {
			results, err := layer.Query(ctx, episodic.Query{
				Text:            "quarterly report due next friday",
				RequesterDomain: "personal",
				K:               10,
			})
			Expect(err).NotTo(HaveOccurred())

			for _, result := range results {
				Expect(result.Record.Domain).To(Equal("personal"))
			}
		})

		It("includes cross-domain records once authorized", func() {
			auth.grant("personal", "professional")

			results, err := layer.Query(ctx, episodic.Query{
				Text:            "quarterly report due next friday",
				RequesterDomain: "personal",
				K:               10,
			})
			Expect(err).NotTo(HaveOccurred())

			domains := make([]string, 0, len(results))
			for _, result := range results {
				domains = append(domains, result.Record.Domain)
			}
			Expect(domains).To(ContainElement("professional"))
		})

		It("restricts results to an explicit domain filter", func() {
			auth.grant("personal", "professional")

			results, err := layer.Query(ctx, episodic.Query{
				Text:            "anything at all",
				RequesterDomain: "personal",
				Domain:          "personal",
				K:               10,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeEmpty())
			for _, result := range results {
				Expect(result.Record.Domain).To(Equal("personal"))
			}
		})

		It("truncates to k", func() {
			results, err := layer.Query(ctx, episodic.Query{
				Text:            "anything at all",
				RequesterDomain: "personal",
				K:               1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("breaks similarity ties by recency", func() {
			older := record("identical content", "personal", 0.5)
			older.CreatedAt = time.Now().UTC().Add(-time.Hour)
			olderID, err := layer.Store(ctx, older)
			Expect(err).NotTo(HaveOccurred())

			newer := record("identical content", "personal", 0.5)
			newer.CreatedAt = time.Now().UTC()
			newerID, err := layer.Store(ctx, newer)
			Expect(err).NotTo(HaveOccurred())

			results, err := layer.Query(ctx, episodic.Query{
				Text:            "identical content",
				RequesterDomain: "personal",
				K:               2,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Record.ID).To(Equal(newerID))
			Expect(results[1].Record.ID).To(Equal(olderID))
		})

		It("rejects an empty query text", func() {
			_, err := layer.Query(ctx, episodic.Query{RequesterDomain: "personal", K: 3})

			var validationErr *memory.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
		})
	})

	Describe("MarkConsolidated", func() {
		It("flips the flag and stamps the time exactly once", func() {
			id, err := layer.Store(ctx, record("met the new team lead", "professional", 0.7))
			Expect(err).NotTo(HaveOccurred())

			Expect(layer.MarkConsolidated(ctx, id)).To(Succeed())

			entry, err := index.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Record.Consolidated).To(BeTrue())
			Expect(entry.Record.ConsolidatedAt).NotTo(BeNil())
			firstStamp := *entry.Record.ConsolidatedAt

			Expect(layer.MarkConsolidated(ctx, id)).To(Succeed())

			entry, err = index.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(*entry.Record.ConsolidatedAt).To(Equal(firstStamp))
		})

		It("fails for an unknown record", func() {
			err := layer.MarkConsolidated(ctx, "no-such-record")
			Expect(err).To(MatchError(vector.ErrNotFound))
		})
	})

	Describe("ListUnconsolidated", func() {
		It("excludes consolidated records", func() {
			first, err := layer.Store(ctx, record("first memory", "personal", 0.7))
			Expect(err).NotTo(HaveOccurred())
			second, err := layer.Store(ctx, record("second memory", "personal", 0.7))
			Expect(err).NotTo(HaveOccurred())

			Expect(layer.MarkConsolidated(ctx, first)).To(Succeed())

			records, err := layer.ListUnconsolidated(ctx, "personal", 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ID).To(Equal(second))
		})

		It("applies minImportance against decayed importance", func() {
			fresh := record("important and recent", "personal", 0.8)
			_, err := layer.Store(ctx, fresh)
			Expect(err).NotTo(HaveOccurred())

			stale := record("important but ancient", "personal", 0.8)
			stale.CreatedAt = time.Now().UTC().Add(-90 * 24 * time.Hour)
			_, err = layer.Store(ctx, stale)
			Expect(err).NotTo(HaveOccurred())

			records, err := layer.ListUnconsolidated(ctx, "personal", 0.5, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Content).To(Equal("important and recent"))
		})

		It("applies the maxAge bound", func() {
			old := record("from last month", "personal", 0.9)
			old.CreatedAt = time.Now().UTC().Add(-31 * 24 * time.Hour)
			_, err := layer.Store(ctx, old)
			Expect(err).NotTo(HaveOccurred())

			recent := record("from this morning", "personal", 0.9)
			_, err = layer.Store(ctx, recent)
			Expect(err).NotTo(HaveOccurred())

			records, err := layer.ListUnconsolidated(ctx, "personal", 0, 7*24*time.Hour)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Content).To(Equal("from this morning"))
		})

		It("treats zero bounds as unbounded", func() {
			ancient := record("very old low importance", "personal", 0.1)
			ancient.CreatedAt = time.Now().UTC().Add(-365 * 24 * time.Hour)
			_, err := layer.Store(ctx, ancient)
			Expect(err).NotTo(HaveOccurred())

			records, err := layer.ListUnconsolidated(ctx, "personal", 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})
	})

	Describe("Domains", func() {
		It("returns distinct domains sorted", func() {
			_, err := layer.Store(ctx, record("one", "professional", 0.5))
			Expect(err).NotTo(HaveOccurred())
			_, err = layer.Store(ctx, record("two", "personal", 0.5))
			Expect(err).NotTo(HaveOccurred())
			_, err = layer.Store(ctx, record("three", "personal", 0.5))
			Expect(err).NotTo(HaveOccurred())

			domains, err := layer.Domains(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(domains).To(Equal([]string{"personal", "professional"}))
		})

		It("returns an empty slice for an empty layer", func() {
			domains, err := layer.Domains(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(domains).To(BeEmpty())
		})
	})

	Describe("Close", func() {
		It("releases the layer", func() {
			Expect(layer.Close()).To(Succeed())
		})
	})
})
