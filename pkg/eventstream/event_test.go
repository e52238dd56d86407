package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemolabs/mnemo/pkg/consolidation"
	"github.com/mnemolabs/mnemo/pkg/eventstream"
	"github.com/mnemolabs/mnemo/pkg/memory"
)

var _ = Describe("Event", func() {
	It("stamps a full envelope on record-stored events", func() {
		rec := memory.Record{
			ID:         "rec-1",
			Content:    "Customer prefers email over phone",
			Domain:     "professional",
			Importance: 0.9,
			Context:    map[string]string{memory.ContextSource: "conversation"},
			CreatedAt:  time.Now().UTC(),
		}

		event := eventstream.NewRecordStoredEvent(rec)
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeRecordStored))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.EmittedAt.IsZero()).To(BeFalse())
		Expect(event.Record.ID).To(Equal("rec-1"))
	})

	It("assigns distinct event IDs", func() {
		first := eventstream.NewRecordStoredEvent(memory.Record{})
		second := eventstream.NewRecordStoredEvent(memory.Record{})
		Expect(first.EventID).NotTo(Equal(second.EventID))
	})

	It("marshals record-stored events with expected top-level keys", func() {
		event := eventstream.NewRecordStoredEvent(memory.Record{
			ID:     "rec-1",
			Domain: "personal",
		})

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("record"))
	})

	It("marshals consolidation summaries with snake_case counters", func() {
		event := eventstream.NewConsolidationCompletedEvent(consolidation.Summary{
			Domain:         "personal",
			Considered:     3,
			Promoted:       2,
			BelowThreshold: 1,
		})

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got struct {
			Summary map[string]any `json:"summary"`
		}
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got.Summary).To(HaveKeyWithValue("domain", "personal"))
		Expect(got.Summary).To(HaveKeyWithValue("considered", float64(3)))
		Expect(got.Summary).To(HaveKeyWithValue("promoted", float64(2)))
		Expect(got.Summary).To(HaveKey("below_threshold"))
		Expect(got.Summary).To(HaveKey("denied_by_domain"))
	})

	It("carries the resolved request verbatim", func() {
		resolved := time.Now().UTC()
		event := eventstream.NewAccessResolvedEvent(memory.CrossDomainRequest{
			ID:           "req-1",
			SourceDomain: "personal",
			TargetDomain: "professional",
			Operation:    memory.OperationRead,
			Status:       memory.StatusApproved,
			ResolvedAt:   &resolved,
		})

		Expect(event.EventType).To(Equal(eventstream.EventTypeAccessResolved))
		Expect(event.Request.Status).To(Equal(memory.StatusApproved))
		Expect(event.Request.ResolvedAt).NotTo(BeNil())
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeRecordStored).To(Equal("mnemo.record.stored"))
		Expect(eventstream.EventTypeConsolidationCompleted).To(Equal("mnemo.consolidation.completed"))
		Expect(eventstream.EventTypeAccessResolved).To(Equal("mnemo.access.resolved"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
