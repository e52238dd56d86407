package heuristic_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemolabs/mnemo/pkg/analysis"
	"github.com/mnemolabs/mnemo/pkg/analysis/heuristic"
)

var _ = Describe("Heuristic Analyzer", func() {
	var (
		ctx      context.Context
		analyzer *heuristic.Analyzer
	)

	BeforeEach(func() {
		ctx = context.Background()
		analyzer = heuristic.NewAnalyzer()
	})

	ofType := func(candidates []analysis.Candidate, candidateType string) []analysis.Candidate {
		matched := make([]analysis.Candidate, 0)
		for _, candidate := range candidates {
			if candidate.Type == candidateType {
				matched = append(matched, candidate)
			}
		}
		return matched
	}

	Describe("property rule", func() {
		It("extracts a property from a preference statement", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "Customer prefers email over phone")
			Expect(err).NotTo(HaveOccurred())

			properties := ofType(candidates, "property")
			Expect(properties).To(HaveLen(1))
			Expect(properties[0].Fields["subject"]).To(Equal("customer"))
			Expect(properties[0].Fields["value"]).To(Equal("email over phone"))
			Expect(properties[0].Fields["name"]).To(Equal("prefers email over phone"))
			Expect(properties[0].Confidence).To(BeNumerically(">", 0))
			Expect(properties[0].Confidence).To(BeNumerically("<=", 1))
		})

		It("keeps a pronoun subject", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "I prefer aisle seats")
			Expect(err).NotTo(HaveOccurred())

			properties := ofType(candidates, "property")
			Expect(properties).To(HaveLen(1))
			Expect(properties[0].Fields["subject"]).To(Equal("i"))
			Expect(properties[0].Fields["value"]).To(Equal("aisle seats"))
		})

		It("drops leading stopwords from the subject", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "The customer wants faster replies")
			Expect(err).NotTo(HaveOccurred())

			properties := ofType(candidates, "property")
			Expect(properties).To(HaveLen(1))
			Expect(properties[0].Fields["subject"]).To(Equal("customer"))
		})
	})

	Describe("relationship rule", func() {
		It("extracts a relationship with preserved endpoint casing", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "Alice manages Bob")
			Expect(err).NotTo(HaveOccurred())

			relationships := ofType(candidates, "relationship")
			Expect(relationships).To(HaveLen(1))
			Expect(relationships[0].Fields["from"]).To(Equal("Alice"))
			Expect(relationships[0].Fields["to"]).To(Equal("Bob"))
			Expect(relationships[0].Fields["relation"]).To(Equal("manages"))
		})

		It("folds a trailing preposition into the relation", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "Bob reports to Alice")
			Expect(err).NotTo(HaveOccurred())

			relationships := ofType(candidates, "relationship")
			Expect(relationships).To(HaveLen(1))
			Expect(relationships[0].Fields["from"]).To(Equal("Bob"))
			Expect(relationships[0].Fields["to"]).To(Equal("Alice"))
			Expect(relationships[0].Fields["relation"]).To(Equal("reports to"))
		})
	})

	Describe("entity rule", func() {
		It("lifts capitalized runs into entities", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "Alice met Bob at the New York office")
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0)
			for _, candidate := range ofType(candidates, "entity") {
				names = append(names, candidate.Fields["name"])
			}
			Expect(names).To(ConsistOf("Alice", "Bob", "New York"))
		})

		It("does not fabricate entities from sentence-initial common words", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "Yesterday I visited the dentist")
			Expect(err).NotTo(HaveOccurred())
			Expect(ofType(candidates, "entity")).To(BeEmpty())
		})

		It("deduplicates repeated entities across sentences", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "Alice likes tea. Alice likes scones.")
			Expect(err).NotTo(HaveOccurred())

			entities := ofType(candidates, "entity")
			Expect(entities).To(HaveLen(1))
			Expect(entities[0].Fields["name"]).To(Equal("Alice"))
		})
	})

	Describe("event rule", func() {
		It("marks sentences with temporal markers", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "The launch happened last week")
			Expect(err).NotTo(HaveOccurred())

			events := ofType(candidates, "event")
			Expect(events).To(HaveLen(1))
			Expect(events[0].Fields["name"]).To(Equal("the launch happened last week"))
		})

		It("emits at most one event per sentence", func() {
			candidates, err := analyzer.ExtractCandidates(ctx, "We met yesterday and it happened quickly")
			Expect(err).NotTo(HaveOccurred())
			Expect(ofType(candidates, "event")).To(HaveLen(1))
		})
	})

	Describe("determinism", func() {
		It("returns identical output for identical input", func() {
			const text = "Alice manages Bob. The customer prefers email over phone. We attended GopherCon yesterday."

			first, err := analyzer.ExtractCandidates(ctx, text)
			Expect(err).NotTo(HaveOccurred())
			second, err := analyzer.ExtractCandidates(ctx, text)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})
	})

	It("returns an empty list for empty input", func() {
		candidates, err := analyzer.ExtractCandidates(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(BeEmpty())
	})

	It("respects context cancellation", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := analyzer.ExtractCandidates(cancelled, "Alice manages Bob")
		Expect(err).To(MatchError(context.Canceled))
	})
})
