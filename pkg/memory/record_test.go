package memory_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemolabs/mnemo/pkg/memory"
)

var _ = Describe("Record", func() {
	var rec memory.Record

	BeforeEach(func() {
		rec = memory.Record{
			Content:    "customer prefers email over phone",
			Kind:       memory.KindEpisodic,
			Importance: 0.9,
			Domain:     "professional:retail",
			Context:    map[string]string{memory.ContextSource: "conversation"},
		}
	})

	Describe("Validate", func() {
		It("accepts a well formed record", func() {
			Expect(rec.Validate()).To(Succeed())
		})

		It("rejects empty content", func() {
			rec.Content = "   "

			err := rec.Validate()

			var verr *memory.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("content"))
		})

		It("rejects a missing domain", func() {
			rec.Domain = ""

			Expect(rec.Validate()).To(HaveOccurred())
		})

		It("rejects importance outside the unit interval", func() {
			rec.Importance = 1.2
			Expect(rec.Validate()).To(HaveOccurred())

			rec.Importance = -0.1
			Expect(rec.Validate()).To(HaveOccurred())
		})

		It("rejects a record without a source in context", func() {
			rec.Context = map[string]string{}

			err := rec.Validate()

			var verr *memory.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("context.source"))
		})
	})

	Describe("Clone", func() {
		It("copies context so the original cannot be mutated", func() {
			clone := rec.Clone()
			clone.Context["source"] = "tampered"

			Expect(rec.Context[memory.ContextSource]).To(Equal("conversation"))
		})

		It("copies the consolidation timestamp", func() {
			at := time.Now()
			rec.ConsolidatedAt = &at

			clone := rec.Clone()
			*clone.ConsolidatedAt = at.Add(time.Hour)

			Expect(*rec.ConsolidatedAt).To(Equal(at))
		})
	})

	Describe("Age", func() {
		It("is zero for a record created in the future", func() {
			rec.CreatedAt = time.Now().Add(time.Hour)

			Expect(rec.Age(time.Now())).To(BeZero())
		})

		It("measures elapsed time since creation", func() {
			now := time.Now()
			rec.CreatedAt = now.Add(-2 * time.Hour)

			Expect(rec.Age(now)).To(Equal(2 * time.Hour))
		})
	})
})
