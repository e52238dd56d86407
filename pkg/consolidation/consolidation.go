// Package consolidation promotes episodic records into semantic memory.
// A run reads unconsolidated records for one domain, extracts candidates,
// gates them by confidence and domain access, and upserts the survivors.
// Records are never deleted; promotion only marks them consolidated.
package consolidation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/extract"
	"github.com/mnemolabs/mnemo/pkg/memory"
)

const (
	// DefaultThreshold is the minimum candidate confidence for promotion.
	DefaultThreshold = 0.6

	// DefaultBatchSize bounds how many records one run processes.
	DefaultBatchSize = 50

	// DefaultCooldown is how long a considered-but-not-promoted record is
	// skipped before it becomes eligible again.
	DefaultCooldown = time.Hour
)

// Episodic is the slice of the episodic layer the engine consumes.
// *episodic.Layer satisfies it.
type Episodic interface {
	ListUnconsolidated(ctx context.Context, domain string, minImportance float64, maxAge time.Duration) ([]memory.Record, error)
	MarkConsolidated(ctx context.Context, id string) error
}

// Semantic is the slice of the semantic layer the engine consumes.
// *semantic.Layer satisfies it.
type Semantic interface {
	UpsertConcept(ctx context.Context, c memory.Concept) (string, error)
	UpsertRelationship(ctx context.Context, r memory.Relationship) (string, error)
}

// Extractor produces promotion candidates from a record.
// *extract.Extractor satisfies it.
type Extractor interface {
	Extract(ctx context.Context, rec memory.Record) ([]extract.Candidate, error)
}

// Authorizer answers whether one domain may write into another.
// *access.Controller satisfies it.
type Authorizer interface {
	AuthorizeWrite(ctx context.Context, sourceDomain, targetDomain string) (bool, error)
}

// Config wires the engine's collaborators and tuning knobs.
type Config struct {
	Episodic   Episodic
	Extractor  Extractor
	Semantic   Semantic
	Authorizer Authorizer

	// Threshold defaults to DefaultThreshold when zero or negative.
	Threshold float64

	// Cooldown defaults to DefaultCooldown when zero or negative.
	Cooldown time.Duration

	// MinImportance filters candidate records by effective importance.
	// Zero lists everything.
	MinImportance float64

	// MaxAge of zero is unbounded.
	MaxAge time.Duration

	// Decay orders candidate records by effective importance. Defaults to
	// memory.DefaultDecayPolicy when zero.
	Decay memory.DecayPolicy

	Logger *zap.Logger
}

// Summary reports what one run did. Considered partitions into Promoted,
// BelowThreshold-only, DeniedByDomain-only, NoCandidates and Failed by the
// record's outcome; the candidate counters tally per-candidate events.
type Summary struct {
	Domain         string    `json:"domain"`
	Considered     int       `json:"considered"`
	Promoted       int       `json:"promoted"`
	BelowThreshold int       `json:"below_threshold"`
	DeniedByDomain int       `json:"denied_by_domain"`
	NoCandidates   int       `json:"no_candidates"`
	Failed         int       `json:"failed"`
	Started        time.Time `json:"started"`
	Finished       time.Time `json:"finished"`
}

// Engine runs consolidation passes. Safe for concurrent use; runs on the
// same domain serialize on a per-domain lock, different domains proceed in
// parallel.
type Engine struct {
	episodic  Episodic
	extractor Extractor
	semantic  Semantic
	auth      Authorizer

	threshold     float64
	cooldown      time.Duration
	minImportance float64
	maxAge        time.Duration
	decay         memory.DecayPolicy
	logger        *zap.Logger

	mu          sync.Mutex
	domainLocks map[string]*sync.Mutex
	considered  map[string]time.Time
}

// NewEngine creates a consolidation engine.
func NewEngine(c Config) (*Engine, error) {
	if c.Episodic == nil {
		return nil, fmt.Errorf("consolidation engine requires an episodic layer")
	}
	if c.Extractor == nil {
		return nil, fmt.Errorf("consolidation engine requires an extractor")
	}
	if c.Semantic == nil {
		return nil, fmt.Errorf("consolidation engine requires a semantic layer")
	}
	if c.Authorizer == nil {
		return nil, fmt.Errorf("consolidation engine requires an authorizer")
	}

	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Threshold > 1 {
		return nil, fmt.Errorf("consolidation threshold %v out of range (0, 1]", c.Threshold)
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.Decay == (memory.DecayPolicy{}) {
		c.Decay = memory.DefaultDecayPolicy()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Engine{
		episodic:      c.Episodic,
		extractor:     c.Extractor,
		semantic:      c.Semantic,
		auth:          c.Authorizer,
		threshold:     c.Threshold,
		cooldown:      c.Cooldown,
		minImportance: c.MinImportance,
		maxAge:        c.MaxAge,
		decay:         c.Decay,
		logger:        c.Logger,
		domainLocks:   make(map[string]*sync.Mutex),
		considered:    make(map[string]time.Time),
	}, nil
}

// Run consolidates up to batchSize records of one domain. The returned
// Summary is valid even when err is non-nil: storage failures abort the run
// but the work already applied stays applied, and re-running is safe because
// every upsert merges.
func (e *Engine) Run(ctx context.Context, domain string, batchSize int) (Summary, error) {
	summary := Summary{Domain: domain, Started: time.Now().UTC()}
	if domain == "" {
		summary.Finished = time.Now().UTC()
		return summary, &memory.ValidationError{Field: "domain", Reason: "must not be empty"}
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	unlock := e.lockDomain(domain)
	defer unlock()

	records, err := e.episodic.ListUnconsolidated(ctx, domain, e.minImportance, e.maxAge)
	if err != nil {
		summary.Finished = time.Now().UTC()
		return summary, fmt.Errorf("list unconsolidated: %w", err)
	}
	batch := e.selectBatch(records, batchSize)

	for _, rec := range batch {
		// Cancellation lands between records, never mid-upsert.
		if err := ctx.Err(); err != nil {
			summary.Finished = time.Now().UTC()
			return summary, err
		}
		summary.Considered++

		if err := e.consolidateRecord(ctx, rec, &summary); err != nil {
			summary.Finished = time.Now().UTC()
			return summary, err
		}
	}

	summary.Finished = time.Now().UTC()
	e.logger.Info("consolidation run finished",
		zap.String("domain", domain),
		zap.Int("considered", summary.Considered),
		zap.Int("promoted", summary.Promoted),
		zap.Int("denied", summary.DeniedByDomain),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// consolidateRecord processes one record. Extraction and per-candidate
// validation failures are absorbed into the summary; only storage failures
// return an error and abort the run.
func (e *Engine) consolidateRecord(ctx context.Context, rec memory.Record, summary *Summary) error {
	candidates, err := e.extractor.Extract(ctx, rec)
	if err != nil {
		e.logger.Warn("extraction failed",
			zap.String("record_id", rec.ID),
			zap.Error(err))
		summary.Failed++
		e.stampConsidered(rec.ID)
		return nil
	}
	if len(candidates) == 0 {
		summary.NoCandidates++
		e.stampConsidered(rec.ID)
		return nil
	}

	promoted := 0
	for _, cand := range candidates {
		if cand.Confidence < e.threshold {
			summary.BelowThreshold++
			continue
		}

		targetDomain := candidateDomain(cand)
		authorized, err := e.auth.AuthorizeWrite(ctx, rec.Domain, targetDomain)
		if err != nil {
			return fmt.Errorf("%w: authorize write: %v", memory.ErrStorageUnavailable, err)
		}
		if !authorized {
			summary.DeniedByDomain++
			continue
		}

		if err := e.promote(ctx, cand); err != nil {
			if errors.Is(err, memory.ErrStorageUnavailable) {
				return err
			}
			e.logger.Warn("promotion rejected",
				zap.String("record_id", rec.ID),
				zap.Error(err))
			summary.Failed++
			continue
		}
		promoted++
		summary.Promoted++
	}

	if promoted == 0 {
		e.stampConsidered(rec.ID)
		return nil
	}
	if err := e.episodic.MarkConsolidated(ctx, rec.ID); err != nil {
		if errors.Is(err, memory.ErrStorageUnavailable) {
			return err
		}
		e.logger.Warn("mark consolidated failed",
			zap.String("record_id", rec.ID),
			zap.Error(err))
		summary.Failed++
	}
	return nil
}

func (e *Engine) promote(ctx context.Context, cand extract.Candidate) error {
	if cand.Concept != nil {
		_, err := e.semantic.UpsertConcept(ctx, *cand.Concept)
		return err
	}
	if cand.Relationship != nil {
		_, err := e.semantic.UpsertRelationship(ctx, *cand.Relationship)
		return err
	}
	return fmt.Errorf("candidate carries neither concept nor relationship")
}

// selectBatch drops records inside the cooldown window, orders the rest by
// effective importance desc with CreatedAt asc tie-break, and truncates.
func (e *Engine) selectBatch(records []memory.Record, batchSize int) []memory.Record {
	now := time.Now().UTC()

	e.mu.Lock()
	eligible := make([]memory.Record, 0, len(records))
	for _, rec := range records {
		if stamp, ok := e.considered[rec.ID]; ok {
			if now.Sub(stamp) < e.cooldown {
				continue
			}
			delete(e.considered, rec.ID)
		}
		eligible = append(eligible, rec)
	}
	e.mu.Unlock()

	sort.Slice(eligible, func(a, b int) bool {
		ea := e.decay.Effective(eligible[a].Importance, eligible[a].Age(now))
		eb := e.decay.Effective(eligible[b].Importance, eligible[b].Age(now))
		if ea != eb {
			return ea > eb
		}
		if !eligible[a].CreatedAt.Equal(eligible[b].CreatedAt) {
			return eligible[a].CreatedAt.Before(eligible[b].CreatedAt)
		}
		return eligible[a].ID < eligible[b].ID
	})

	if len(eligible) > batchSize {
		eligible = eligible[:batchSize]
	}
	return eligible
}

func (e *Engine) stampConsidered(id string) {
	e.mu.Lock()
	e.considered[id] = time.Now().UTC()
	e.mu.Unlock()
}

// lockDomain blocks until this domain's run lock is held and returns the
// release func.
func (e *Engine) lockDomain(domain string) func() {
	e.mu.Lock()
	lock, ok := e.domainLocks[domain]
	if !ok {
		lock = &sync.Mutex{}
		e.domainLocks[domain] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func candidateDomain(cand extract.Candidate) string {
	if cand.Concept != nil {
		return cand.Concept.Domain
	}
	if cand.Relationship != nil {
		return cand.Relationship.Domain
	}
	return ""
}
