package semantic_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemolabs/mnemo/pkg/graph/inmemory"
	"github.com/mnemolabs/mnemo/pkg/memory"
	"github.com/mnemolabs/mnemo/pkg/semantic"
)

var _ = Describe("Semantic Layer", func() {
	var (
		ctx   context.Context
		layer *semantic.Layer
	)

	concept := func(name string, confidence float64) memory.Concept {
		return memory.Concept{
			Name:       name,
			Type:       memory.ConceptEntity,
			Domain:     "professional",
			Confidence: confidence,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		layer, err = semantic.NewLayer(semantic.Config{Store: inmemory.NewStore()})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("UpsertConcept", func() {
		It("creates a concept and returns a stable ID on re-upsert", func() {
			first, err := layer.UpsertConcept(ctx, concept("Go", 0.7))
			Expect(err).NotTo(HaveOccurred())
			Expect(first).NotTo(BeEmpty())

			second, err := layer.UpsertConcept(ctx, concept("Go", 0.8))
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("never lowers confidence on merge", func() {
			_, err := layer.UpsertConcept(ctx, concept("Go", 0.9))
			Expect(err).NotTo(HaveOccurred())
			_, err = layer.UpsertConcept(ctx, concept("Go", 0.6))
			Expect(err).NotTo(HaveOccurred())

			result, err := layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts).To(HaveLen(1))
			Expect(result.Concepts[0].Confidence).To(Equal(0.9))
		})

		It("raises confidence when the candidate is stronger", func() {
			_, err := layer.UpsertConcept(ctx, concept("Go", 0.6))
			Expect(err).NotTo(HaveOccurred())
			_, err = layer.UpsertConcept(ctx, concept("Go", 0.85))
			Expect(err).NotTo(HaveOccurred())

			result, err := layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts[0].Confidence).To(Equal(0.85))
		})

		It("merges non-conflicting properties", func() {
			first := concept("Go", 0.7)
			first.Properties = map[string]string{"category": "language"}
			_, err := layer.UpsertConcept(ctx, first)
			Expect(err).NotTo(HaveOccurred())

			second := concept("Go", 0.7)
			second.Properties = map[string]string{"paradigm": "concurrent"}
			_, err = layer.UpsertConcept(ctx, second)
			Expect(err).NotTo(HaveOccurred())

			result, err := layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts[0].Properties).To(Equal(map[string]string{
				"category": "language",
				"paradigm": "concurrent",
			}))
		})

		It("resolves property conflicts toward the higher-confidence source", func() {
			first := concept("Go", 0.9)
			first.Properties = map[string]string{"category": "language"}
			_, err := layer.UpsertConcept(ctx, first)
			Expect(err).NotTo(HaveOccurred())

			weaker := concept("Go", 0.5)
			weaker.Properties = map[string]string{"category": "tool"}
			_, err = layer.UpsertConcept(ctx, weaker)
			Expect(err).NotTo(HaveOccurred())

			result, err := layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts[0].Properties["category"]).To(Equal("language"))

			stronger := concept("Go", 0.95)
			stronger.Properties = map[string]string{"category": "platform"}
			_, err = layer.UpsertConcept(ctx, stronger)
			Expect(err).NotTo(HaveOccurred())

			result, err = layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts[0].Properties["category"]).To(Equal("platform"))
		})

		It("keeps the existing value on a confidence tie", func() {
			first := concept("Go", 0.7)
			first.Properties = map[string]string{"category": "language"}
			_, err := layer.UpsertConcept(ctx, first)
			Expect(err).NotTo(HaveOccurred())

			tie := concept("Go", 0.7)
			tie.Properties = map[string]string{"category": "tool"}
			_, err = layer.UpsertConcept(ctx, tie)
			Expect(err).NotTo(HaveOccurred())

			result, err := layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts[0].Properties["category"]).To(Equal("language"))
		})

		It("keeps concepts with the same name separate across domains", func() {
			_, err := layer.UpsertConcept(ctx, concept("Go", 0.7))
			Expect(err).NotTo(HaveOccurred())

			personal := concept("Go", 0.5)
			personal.Domain = "personal"
			_, err = layer.UpsertConcept(ctx, personal)
			Expect(err).NotTo(HaveOccurred())

			domains, err := layer.Domains(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(domains).To(Equal([]string{"personal", "professional"}))
		})

		It("survives concurrent merges of the same key", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(confidence float64) {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := layer.UpsertConcept(ctx, concept("Go", confidence))
					Expect(err).NotTo(HaveOccurred())
				}(0.5 + float64(i%5)/10)
			}
			wg.Wait()

			result, err := layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts).To(HaveLen(1))
			Expect(result.Concepts[0].Confidence).To(Equal(0.9))
		})

		DescribeTable("validation",
			func(mutate func(*memory.Concept), wantField string) {
				c := concept("Go", 0.7)
				mutate(&c)

				_, err := layer.UpsertConcept(ctx, c)

				var validationErr *memory.ValidationError
				Expect(errors.As(err, &validationErr)).To(BeTrue())
				Expect(validationErr.Field).To(Equal(wantField))
			},
			Entry("empty name", func(c *memory.Concept) { c.Name = "" }, "name"),
			Entry("unknown type", func(c *memory.Concept) { c.Type = "widget" }, "type"),
			Entry("empty domain", func(c *memory.Concept) { c.Domain = "" }, "domain"),
			Entry("confidence above one", func(c *memory.Concept) { c.Confidence = 1.1 }, "confidence"),
		)
	})

	Describe("UpsertRelationship", func() {
		var goKey, sqlKey string

		BeforeEach(func() {
			goConcept := concept("Go", 0.8)
			_, err := layer.UpsertConcept(ctx, goConcept)
			Expect(err).NotTo(HaveOccurred())
			goKey = goConcept.Key()

			sqlConcept := concept("SQL", 0.8)
			_, err = layer.UpsertConcept(ctx, sqlConcept)
			Expect(err).NotTo(HaveOccurred())
			sqlKey = sqlConcept.Key()
		})

		relationship := func(confidence float64) memory.Relationship {
			return memory.Relationship{
				FromID:     goKey,
				ToID:       sqlKey,
				Type:       "related to",
				Domain:     "professional",
				Confidence: confidence,
			}
		}

		It("stores a relationship with a normalized type", func() {
			_, err := layer.UpsertRelationship(ctx, relationship(0.7))
			Expect(err).NotTo(HaveOccurred())

			result, err := layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go", Depth: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Relationships).To(HaveLen(1))
			Expect(result.Relationships[0].Type).To(Equal("related_to"))
			Expect(result.Relationships[0].FromID).To(Equal(goKey))
			Expect(result.Relationships[0].ToID).To(Equal(sqlKey))
		})

		It("rejects relationships with unknown endpoints", func() {
			rel := relationship(0.7)
			rel.ToID = "entity|professional|Ghost"

			_, err := layer.UpsertRelationship(ctx, rel)

			var validationErr *memory.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
			Expect(validationErr.Field).To(Equal("to_id"))
		})

		It("merges confidence upward only", func() {
			_, err := layer.UpsertRelationship(ctx, relationship(0.8))
			Expect(err).NotTo(HaveOccurred())
			_, err = layer.UpsertRelationship(ctx, relationship(0.5))
			Expect(err).NotTo(HaveOccurred())

			result, err := layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go", Depth: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Relationships).To(HaveLen(1))
			Expect(result.Relationships[0].Confidence).To(Equal(0.8))
		})

		It("returns a stable ID on re-upsert", func() {
			first, err := layer.UpsertRelationship(ctx, relationship(0.7))
			Expect(err).NotTo(HaveOccurred())
			second, err := layer.UpsertRelationship(ctx, relationship(0.9))
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			golang := concept("Go", 0.9)
			golang.Properties = map[string]string{"category": "language"}
			_, err := layer.UpsertConcept(ctx, golang)
			Expect(err).NotTo(HaveOccurred())

			sql := concept("SQL", 0.8)
			_, err = layer.UpsertConcept(ctx, sql)
			Expect(err).NotTo(HaveOccurred())

			cooking := memory.Concept{Name: "Cooking", Type: memory.ConceptAbstract, Domain: "personal", Confidence: 0.6}
			_, err = layer.UpsertConcept(ctx, cooking)
			Expect(err).NotTo(HaveOccurred())

			_, err = layer.UpsertRelationship(ctx, memory.Relationship{
				FromID:     golang.Key(),
				ToID:       sql.Key(),
				Type:       "related_to",
				Domain:     "professional",
				Confidence: 0.7,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("filters by domain", func() {
			result, err := layer.Query(ctx, semantic.Query{Domain: "personal"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts).To(HaveLen(1))
			Expect(result.Concepts[0].Name).To(Equal("Cooking"))
		})

		It("filters by concept type", func() {
			result, err := layer.Query(ctx, semantic.Query{Type: memory.ConceptAbstract})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts).To(HaveLen(1))
			Expect(result.Concepts[0].Type).To(Equal(memory.ConceptAbstract))
		})

		It("filters seed concepts by user property", func() {
			result, err := layer.Query(ctx, semantic.Query{Properties: map[string]string{"category": "language"}})
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(result.Concepts))
			for _, c := range result.Concepts {
				names = append(names, c.Name)
			}
			// SQL arrives through the one-hop expansion from Go.
			Expect(names).To(ConsistOf("Go", "SQL"))
			Expect(names).NotTo(ContainElement("Cooking"))
		})

		It("expands one hop by default", func() {
			result, err := layer.Query(ctx, semantic.Query{Domain: "professional", Name: "Go"})
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(result.Concepts))
			for _, c := range result.Concepts {
				names = append(names, c.Name)
			}
			Expect(names).To(ConsistOf("Go", "SQL"))
			Expect(result.Relationships).To(HaveLen(1))
		})

		It("rejects unknown concept types", func() {
			_, err := layer.Query(ctx, semantic.Query{Type: "widget"})

			var validationErr *memory.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
		})
	})
})
