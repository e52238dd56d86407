package consolidation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemolabs/mnemo/pkg/access"
	accessmem "github.com/mnemolabs/mnemo/pkg/access/inmemory"
	"github.com/mnemolabs/mnemo/pkg/analysis/heuristic"
	"github.com/mnemolabs/mnemo/pkg/consolidation"
	"github.com/mnemolabs/mnemo/pkg/embeddings/mock"
	"github.com/mnemolabs/mnemo/pkg/episodic"
	"github.com/mnemolabs/mnemo/pkg/extract"
	graphmem "github.com/mnemolabs/mnemo/pkg/graph/inmemory"
	"github.com/mnemolabs/mnemo/pkg/memory"
	"github.com/mnemolabs/mnemo/pkg/semantic"
	vecmem "github.com/mnemolabs/mnemo/pkg/vector/inmemory"
)

// stack bundles the in-process layers for end-to-end engine runs.
type stack struct {
	episodic   *episodic.Layer
	semantic   *semantic.Layer
	controller *access.Controller
	engine     *consolidation.Engine
}

func newStack(extra ...func(*consolidation.Config)) *stack {
	controller, err := access.NewController(accessmem.NewStore(), access.Config{})
	Expect(err).NotTo(HaveOccurred())

	epi, err := episodic.NewLayer(episodic.Config{
		Index:      vecmem.NewIndex(),
		Embedder:   mock.NewEmbedder(0),
		Authorizer: controller,
	})
	Expect(err).NotTo(HaveOccurred())

	sem, err := semantic.NewLayer(semantic.Config{Store: graphmem.NewStore()})
	Expect(err).NotTo(HaveOccurred())

	extractor, err := extract.NewExtractor(extract.Config{Analyzer: heuristic.NewAnalyzer()})
	Expect(err).NotTo(HaveOccurred())

	cfg := consolidation.Config{
		Episodic:   epi,
		Extractor:  extractor,
		Semantic:   sem,
		Authorizer: controller,
	}
	for _, apply := range extra {
		apply(&cfg)
	}

	engine, err := consolidation.NewEngine(cfg)
	Expect(err).NotTo(HaveOccurred())

	return &stack{episodic: epi, semantic: sem, controller: controller, engine: engine}
}

func (s *stack) store(ctx context.Context, content, domain string, importance float64) string {
	id, err := s.episodic.Store(ctx, memory.Record{
		Content:    content,
		Domain:     domain,
		Importance: importance,
		Context:    map[string]string{memory.ContextSource: "conversation"},
	})
	Expect(err).NotTo(HaveOccurred())
	return id
}

var _ = Describe("Engine", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("promoting a preference", func() {
		var (
			s     *stack
			recID string
		)

		BeforeEach(func() {
			s = newStack()
			recID = s.store(ctx, "Customer prefers email over phone", "professional", 0.9)
		})

		It("lands a property concept above the promotion bar", func() {
			summary, err := s.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Considered).To(Equal(1))
			Expect(summary.Promoted).To(Equal(2))

			result, err := s.semantic.Query(ctx, semantic.Query{
				Domain: "professional",
				Type:   memory.ConceptProperty,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Concepts).To(HaveLen(1))
			Expect(result.Concepts[0].Name).To(Equal("prefers email over phone"))
			Expect(result.Concepts[0].Confidence).To(BeNumerically(">=", 0.6))
		})

		It("marks the record consolidated", func() {
			_, err := s.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())

			remaining, err := s.episodic.ListUnconsolidated(ctx, "professional", 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(BeEmpty())
		})

		It("promotes nothing new on a second run", func() {
			first, err := s.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Promoted).To(BeNumerically(">", 0))

			second, err := s.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Considered).To(BeZero())
			Expect(second.Promoted).To(BeZero())
		})

		It("stamps summary bounds", func() {
			summary, err := s.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Domain).To(Equal("professional"))
			Expect(summary.Started.IsZero()).To(BeFalse())
			Expect(summary.Finished.Before(summary.Started)).To(BeFalse())
		})

		It("keeps the record retrievable after promotion", func() {
			_, err := s.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())

			hits, err := s.episodic.Query(ctx, episodic.Query{
				Text:            "Customer prefers email over phone",
				RequesterDomain: "professional",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].Record.ID).To(Equal(recID))
		})
	})

	Describe("below-threshold records", func() {
		var s *stack

		BeforeEach(func() {
			s = newStack()
			s.store(ctx, "Customer prefers email over phone", "professional", 0.4)
		})

		It("counts candidates without promoting", func() {
			summary, err := s.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Considered).To(Equal(1))
			Expect(summary.Promoted).To(BeZero())
			Expect(summary.BelowThreshold).To(BeNumerically(">", 0))

			remaining, err := s.episodic.ListUnconsolidated(ctx, "professional", 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(1))
		})

		It("skips the record until the cooldown passes", func() {
			_, err := s.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())

			second, err := s.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Considered).To(BeZero())
		})

		It("reconsiders the record once the cooldown expires", func() {
			short := newStack(func(c *consolidation.Config) {
				c.Cooldown = time.Millisecond
			})
			short.store(ctx, "Customer prefers email over phone", "professional", 0.4)

			_, err := short.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())

			time.Sleep(5 * time.Millisecond)

			again, err := short.engine.Run(ctx, "professional", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Considered).To(Equal(1))
		})
	})

	Describe("validation", func() {
		It("rejects an empty domain", func() {
			s := newStack()
			_, err := s.engine.Run(ctx, "", 0)

			var verr *memory.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("domain"))
		})

		It("requires every collaborator", func() {
			_, err := consolidation.NewEngine(consolidation.Config{})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a threshold above one", func() {
			s := newStack()
			_, err := consolidation.NewEngine(consolidation.Config{
				Episodic:   s.episodic,
				Extractor:  &stubExtractor{},
				Semantic:   s.semantic,
				Authorizer: s.controller,
				Threshold:  1.2,
			})
			Expect(err).To(MatchError(ContainSubstring("threshold")))
		})
	})
})

// --- stub collaborators for count and failure-path tests ---

type stubEpisodic struct {
	mu      sync.Mutex
	records []memory.Record
	marked  map[string]bool
	markErr error
}

func newStubEpisodic(records ...memory.Record) *stubEpisodic {
	return &stubEpisodic{records: records, marked: make(map[string]bool)}
}

func (s *stubEpisodic) ListUnconsolidated(_ context.Context, domain string, _ float64, _ time.Duration) ([]memory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]memory.Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Domain == domain && !s.marked[rec.ID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubEpisodic) MarkConsolidated(_ context.Context, id string) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked[id] = true
	return nil
}

type stubExtractor struct {
	mu        sync.Mutex
	byRecord  map[string][]extract.Candidate
	errFor    map[string]error
	extracted []string
	onExtract func()
}

func (s *stubExtractor) Extract(_ context.Context, rec memory.Record) ([]extract.Candidate, error) {
	s.mu.Lock()
	s.extracted = append(s.extracted, rec.ID)
	s.mu.Unlock()
	if s.onExtract != nil {
		s.onExtract()
	}
	if err := s.errFor[rec.ID]; err != nil {
		return nil, err
	}
	return s.byRecord[rec.ID], nil
}

type stubSemantic struct {
	mu         sync.Mutex
	concepts   []memory.Concept
	rels       []memory.Relationship
	upsertErr  error
	upsertRelE error
}

func (s *stubSemantic) UpsertConcept(_ context.Context, c memory.Concept) (string, error) {
	if s.upsertErr != nil {
		return "", s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concepts = append(s.concepts, c)
	return "concept-id", nil
}

func (s *stubSemantic) UpsertRelationship(_ context.Context, r memory.Relationship) (string, error) {
	if s.upsertRelE != nil {
		return "", s.upsertRelE
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rels = append(s.rels, r)
	return "rel-id", nil
}

type stubAuthorizer struct {
	allow map[[2]string]bool
	err   error
}

func (s *stubAuthorizer) AuthorizeWrite(_ context.Context, source, target string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if source == target {
		return true, nil
	}
	return s.allow[[2]string{source, target}], nil
}

func record(id, domain string, importance float64, age time.Duration) memory.Record {
	return memory.Record{
		ID:         id,
		Content:    "content of " + id,
		Domain:     domain,
		Importance: importance,
		CreatedAt:  time.Now().UTC().Add(-age),
	}
}

func entityCandidate(name, domain string, confidence float64) extract.Candidate {
	return extract.Candidate{
		Concept: &memory.Concept{
			Name:       name,
			Type:       memory.ConceptEntity,
			Domain:     domain,
			Confidence: confidence,
		},
		Confidence: confidence,
	}
}

var _ = Describe("Engine over stubs", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	newEngine := func(epi *stubEpisodic, ext *stubExtractor, sem *stubSemantic, auth *stubAuthorizer, extra ...func(*consolidation.Config)) *consolidation.Engine {
		cfg := consolidation.Config{
			Episodic:   epi,
			Extractor:  ext,
			Semantic:   sem,
			Authorizer: auth,
		}
		for _, apply := range extra {
			apply(&cfg)
		}
		engine, err := consolidation.NewEngine(cfg)
		Expect(err).NotTo(HaveOccurred())
		return engine
	}

	It("absorbs an extraction failure and keeps processing the batch", func() {
		epi := newStubEpisodic(
			record("rec-a", "personal", 0.9, 0),
			record("rec-b", "personal", 0.8, 0),
		)
		ext := &stubExtractor{
			errFor:   map[string]error{"rec-a": fmt.Errorf("analyzer exploded")},
			byRecord: map[string][]extract.Candidate{"rec-b": {entityCandidate("Alice", "personal", 0.9)}},
		}
		sem := &stubSemantic{}
		engine := newEngine(epi, ext, sem, &stubAuthorizer{})

		summary, err := engine.Run(ctx, "personal", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Considered).To(Equal(2))
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.Promoted).To(Equal(1))
		Expect(epi.marked["rec-b"]).To(BeTrue())
		Expect(epi.marked["rec-a"]).To(BeFalse())
	})

	It("counts records with no candidates without marking them", func() {
		epi := newStubEpisodic(record("rec-a", "personal", 0.9, 0))
		engine := newEngine(epi, &stubExtractor{}, &stubSemantic{}, &stubAuthorizer{})

		summary, err := engine.Run(ctx, "personal", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.NoCandidates).To(Equal(1))
		Expect(epi.marked).To(BeEmpty())
	})

	It("treats cross-domain denial as an outcome, not an error", func() {
		epi := newStubEpisodic(record("rec-a", "professional", 0.9, 0))
		ext := &stubExtractor{byRecord: map[string][]extract.Candidate{
			"rec-a": {entityCandidate("Alice", "personal", 0.9)},
		}}
		engine := newEngine(epi, ext, &stubSemantic{}, &stubAuthorizer{})

		summary, err := engine.Run(ctx, "professional", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.DeniedByDomain).To(Equal(1))
		Expect(summary.Promoted).To(BeZero())
		Expect(epi.marked).To(BeEmpty())
	})

	It("promotes across domains once a write approval exists", func() {
		epi := newStubEpisodic(record("rec-a", "professional", 0.9, 0))
		ext := &stubExtractor{byRecord: map[string][]extract.Candidate{
			"rec-a": {entityCandidate("Alice", "personal", 0.9)},
		}}
		sem := &stubSemantic{}
		auth := &stubAuthorizer{allow: map[[2]string]bool{{"professional", "personal"}: true}}
		engine := newEngine(epi, ext, sem, auth)

		summary, err := engine.Run(ctx, "professional", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Promoted).To(Equal(1))
		Expect(sem.concepts).To(HaveLen(1))
		Expect(sem.concepts[0].Domain).To(Equal("personal"))
	})

	It("aborts the run when semantic storage is unavailable", func() {
		epi := newStubEpisodic(
			record("rec-a", "personal", 0.9, 0),
			record("rec-b", "personal", 0.8, 0),
		)
		ext := &stubExtractor{byRecord: map[string][]extract.Candidate{
			"rec-a": {entityCandidate("Alice", "personal", 0.9)},
			"rec-b": {entityCandidate("Bob", "personal", 0.9)},
		}}
		sem := &stubSemantic{upsertErr: fmt.Errorf("%w: graph down", memory.ErrStorageUnavailable)}
		engine := newEngine(epi, ext, sem, &stubAuthorizer{})

		summary, err := engine.Run(ctx, "personal", 0)
		Expect(errors.Is(err, memory.ErrStorageUnavailable)).To(BeTrue())
		Expect(summary.Considered).To(Equal(1))
		Expect(epi.marked).To(BeEmpty())
	})

	It("aborts when the authorizer cannot answer", func() {
		epi := newStubEpisodic(record("rec-a", "professional", 0.9, 0))
		ext := &stubExtractor{byRecord: map[string][]extract.Candidate{
			"rec-a": {entityCandidate("Alice", "personal", 0.9)},
		}}
		engine := newEngine(epi, ext, &stubSemantic{}, &stubAuthorizer{err: fmt.Errorf("store offline")})

		_, err := engine.Run(ctx, "professional", 0)
		Expect(errors.Is(err, memory.ErrStorageUnavailable)).To(BeTrue())
	})

	It("stops between records when the context is cancelled", func() {
		epi := newStubEpisodic(
			record("rec-a", "personal", 0.9, 0),
			record("rec-b", "personal", 0.8, 0),
		)
		cancellable, cancel := context.WithCancel(ctx)
		ext := &stubExtractor{
			byRecord:  map[string][]extract.Candidate{"rec-a": {entityCandidate("Alice", "personal", 0.9)}},
			onExtract: cancel,
		}
		engine := newEngine(epi, ext, &stubSemantic{}, &stubAuthorizer{})

		summary, err := engine.Run(cancellable, "personal", 0)
		Expect(err).To(MatchError(context.Canceled))
		Expect(summary.Considered).To(Equal(1))
	})

	It("orders the batch by effective importance and truncates", func() {
		epi := newStubEpisodic(
			record("rec-low", "personal", 0.5, 0),
			record("rec-high", "personal", 0.9, 0),
			record("rec-mid", "personal", 0.7, 0),
		)
		ext := &stubExtractor{}
		engine := newEngine(epi, ext, &stubSemantic{}, &stubAuthorizer{})

		summary, err := engine.Run(ctx, "personal", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Considered).To(Equal(2))
		Expect(ext.extracted).To(Equal([]string{"rec-high", "rec-mid"}))
	})

	It("prefers a fresh record over a decayed one of equal importance", func() {
		epi := newStubEpisodic(
			record("rec-old", "personal", 0.9, 60*24*time.Hour),
			record("rec-new", "personal", 0.9, 0),
		)
		ext := &stubExtractor{}
		engine := newEngine(epi, ext, &stubSemantic{}, &stubAuthorizer{})

		summary, err := engine.Run(ctx, "personal", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Considered).To(Equal(1))
		Expect(ext.extracted).To(Equal([]string{"rec-new"}))
	})

	It("counts below-threshold candidates per candidate", func() {
		epi := newStubEpisodic(record("rec-a", "personal", 0.9, 0))
		ext := &stubExtractor{byRecord: map[string][]extract.Candidate{
			"rec-a": {
				entityCandidate("Alice", "personal", 0.3),
				entityCandidate("Bob", "personal", 0.4),
				entityCandidate("Carol", "personal", 0.9),
			},
		}}
		sem := &stubSemantic{}
		engine := newEngine(epi, ext, sem, &stubAuthorizer{})

		summary, err := engine.Run(ctx, "personal", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.BelowThreshold).To(Equal(2))
		Expect(summary.Promoted).To(Equal(1))
		Expect(epi.marked["rec-a"]).To(BeTrue())
	})

	It("promotes relationships through the semantic layer", func() {
		epi := newStubEpisodic(record("rec-a", "personal", 0.9, 0))
		rel := extract.Candidate{
			Relationship: &memory.Relationship{
				FromID:     "entity|personal|Alice",
				ToID:       "entity|personal|Bob",
				Type:       "manages",
				Domain:     "personal",
				Confidence: 0.7,
			},
			Confidence: 0.7,
		}
		ext := &stubExtractor{byRecord: map[string][]extract.Candidate{
			"rec-a": {
				entityCandidate("Alice", "personal", 0.8),
				entityCandidate("Bob", "personal", 0.8),
				rel,
			},
		}}
		sem := &stubSemantic{}
		engine := newEngine(epi, ext, sem, &stubAuthorizer{})

		summary, err := engine.Run(ctx, "personal", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Promoted).To(Equal(3))
		Expect(sem.concepts).To(HaveLen(2))
		Expect(sem.rels).To(HaveLen(1))
	})
})
