// Package engine assembles the two memory layers, the access controller, the
// consolidation engine and the query router behind a single facade. The
// facade owns a worker pool for background consolidation and publishes
// lifecycle events; publish failures are logged, never surfaced.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/access"
	"github.com/mnemolabs/mnemo/pkg/consolidation"
	"github.com/mnemolabs/mnemo/pkg/consolidation/worker"
	"github.com/mnemolabs/mnemo/pkg/episodic"
	"github.com/mnemolabs/mnemo/pkg/eventstream"
	"github.com/mnemolabs/mnemo/pkg/eventstream/nop"
	"github.com/mnemolabs/mnemo/pkg/extract"
	"github.com/mnemolabs/mnemo/pkg/memory"
	"github.com/mnemolabs/mnemo/pkg/query"
	"github.com/mnemolabs/mnemo/pkg/semantic"
)

// Config wires the engine's collaborators.
type Config struct {
	Episodic      *episodic.Layer
	Semantic      *semantic.Layer
	Access        *access.Controller
	Consolidation *consolidation.Engine
	Router        *query.Router
	Extractor     *extract.Extractor

	// Publisher defaults to a no-op publisher when nil.
	Publisher eventstream.Publisher

	// Workers and QueueSize size the background consolidation pool.
	// Zero values take the pool defaults.
	Workers   uint
	QueueSize uint

	Logger *zap.Logger
}

// Engine is the memory system facade.
type Engine struct {
	episodic      *episodic.Layer
	semantic      *semantic.Layer
	access        *access.Controller
	consolidation *consolidation.Engine
	router        *query.Router
	extractor     *extract.Extractor
	publisher     eventstream.Publisher
	pool          *worker.Pool
	logger        *zap.Logger
}

// New creates the engine and starts its background consolidation pool.
func New(c Config) (*Engine, error) {
	if c.Episodic == nil {
		return nil, fmt.Errorf("engine requires an episodic layer")
	}
	if c.Semantic == nil {
		return nil, fmt.Errorf("engine requires a semantic layer")
	}
	if c.Access == nil {
		return nil, fmt.Errorf("engine requires an access controller")
	}
	if c.Consolidation == nil {
		return nil, fmt.Errorf("engine requires a consolidation engine")
	}
	if c.Router == nil {
		return nil, fmt.Errorf("engine requires a query router")
	}
	if c.Extractor == nil {
		return nil, fmt.Errorf("engine requires an extractor")
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	e := &Engine{
		episodic:      c.Episodic,
		semantic:      c.Semantic,
		access:        c.Access,
		consolidation: c.Consolidation,
		router:        c.Router,
		extractor:     c.Extractor,
		publisher:     c.Publisher,
		logger:        c.Logger,
	}

	// Pool jobs go through the facade, not the consolidation engine
	// directly, so background runs publish completion events too.
	pool, err := worker.NewPool(&worker.Config{
		Runner:     consolidationRunner{engine: e},
		NumWorkers: c.Workers,
		QueueSize:  c.QueueSize,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}
	e.pool = pool

	return e, nil
}

// consolidationRunner adapts the facade to the pool's Runner interface.
type consolidationRunner struct {
	engine *Engine
}

func (r consolidationRunner) Run(ctx context.Context, domain string, batchSize int) (consolidation.Summary, error) {
	return r.engine.RunConsolidation(ctx, domain, batchSize)
}

// StoreEpisodic stores one raw experience and returns its assigned ID.
func (e *Engine) StoreEpisodic(ctx context.Context, rec memory.Record) (string, error) {
	id, err := e.episodic.Store(ctx, rec)
	if err != nil {
		return "", err
	}

	stored := rec.Clone()
	stored.ID = id
	stored.Kind = memory.KindEpisodic
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.Context[memory.ContextDomain] = stored.Domain

	if err := e.publisher.PublishRecordStored(ctx, eventstream.NewRecordStoredEvent(stored)); err != nil {
		e.logger.Warn("record stored event not published",
			zap.String("record_id", id),
			zap.Error(err),
		)
	}

	return id, nil
}

// QueryMemory runs one query across both layers and returns the merged
// ranking, best first.
func (e *Engine) QueryMemory(ctx context.Context, text, requesterDomain string, k int) ([]query.Result, error) {
	return e.router.Query(ctx, text, requesterDomain, k)
}

// RunConsolidation promotes up to batchSize records of one domain and
// reports what happened.
func (e *Engine) RunConsolidation(ctx context.Context, domain string, batchSize int) (consolidation.Summary, error) {
	summary, err := e.consolidation.Run(ctx, domain, batchSize)
	if err != nil {
		return summary, err
	}

	if err := e.publisher.PublishConsolidationCompleted(ctx, eventstream.NewConsolidationCompletedEvent(summary)); err != nil {
		e.logger.Warn("consolidation completed event not published",
			zap.String("domain", domain),
			zap.Error(err),
		)
	}

	return summary, nil
}

// ScheduleConsolidation enqueues a background consolidation pass. Returns
// false when the queue is full and the job was dropped.
func (e *Engine) ScheduleConsolidation(domain string, batchSize int) bool {
	return e.pool.Enqueue(worker.Job{Domain: domain, BatchSize: batchSize})
}

// RequestCrossDomainAccess files a pending request for one domain to touch
// another's memory.
func (e *Engine) RequestCrossDomainAccess(ctx context.Context, source, target, operation, justification string) (memory.CrossDomainRequest, error) {
	return e.access.RequestAccess(ctx, source, target, operation, justification)
}

// ResolveCrossDomainRequest approves or denies a pending request.
func (e *Engine) ResolveCrossDomainRequest(ctx context.Context, requestID string, approve bool) (memory.CrossDomainRequest, error) {
	resolved, err := e.access.Resolve(ctx, requestID, approve)
	if err != nil {
		return resolved, err
	}

	if err := e.publisher.PublishAccessResolved(ctx, eventstream.NewAccessResolvedEvent(resolved)); err != nil {
		e.logger.Warn("access resolved event not published",
			zap.String("request_id", resolved.ID),
			zap.Error(err),
		)
	}

	return resolved, nil
}

// AccessRequests lists every cross-domain request, pending and resolved.
func (e *Engine) AccessRequests(ctx context.Context) ([]memory.CrossDomainRequest, error) {
	return e.access.List(ctx)
}

// Domains returns every domain known to either layer, sorted.
func (e *Engine) Domains(ctx context.Context) ([]string, error) {
	episodicDomains, err := e.episodic.Domains(ctx)
	if err != nil {
		return nil, err
	}
	semanticDomains, err := e.semantic.Domains(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(episodicDomains)+len(semanticDomains))
	domains := make([]string, 0, len(episodicDomains)+len(semanticDomains))
	for _, domain := range append(episodicDomains, semanticDomains...) {
		if seen[domain] {
			continue
		}
		seen[domain] = true
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains, nil
}

// Close drains the worker pool, then releases the publisher and every
// storage backend.
func (e *Engine) Close() error {
	e.pool.Close()
	return errors.Join(
		e.publisher.Close(),
		e.extractor.Close(),
		e.episodic.Close(),
		e.semantic.Close(),
		e.access.Close(),
	)
}
