package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/access"
	accessutils "github.com/mnemolabs/mnemo/pkg/access/utils"
	analysisutils "github.com/mnemolabs/mnemo/pkg/analysis/utils"
	"github.com/mnemolabs/mnemo/pkg/config"
	"github.com/mnemolabs/mnemo/pkg/consolidation"
	embeddingutils "github.com/mnemolabs/mnemo/pkg/embeddings/utils"
	"github.com/mnemolabs/mnemo/pkg/episodic"
	eventstreamutils "github.com/mnemolabs/mnemo/pkg/eventstream/utils"
	"github.com/mnemolabs/mnemo/pkg/extract"
	graphutils "github.com/mnemolabs/mnemo/pkg/graph/utils"
	"github.com/mnemolabs/mnemo/pkg/memory"
	"github.com/mnemolabs/mnemo/pkg/query"
	"github.com/mnemolabs/mnemo/pkg/semantic"
	vectorutils "github.com/mnemolabs/mnemo/pkg/vector/utils"
)

// FromConfig builds a fully wired engine from the persistent configuration.
// Backends come from their provider factories; the context bounds connection
// setup for networked backends.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine requires a config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cooldown, err := parseDuration("consolidation.cooldown", cfg.Consolidation.Cooldown)
	if err != nil {
		return nil, err
	}
	decayWindow, err := parseDuration("consolidation.decay_window", cfg.Consolidation.DecayWindow)
	if err != nil {
		return nil, err
	}
	decay := memory.DecayPolicy{Window: decayWindow, Floor: cfg.Consolidation.DecayFloor}

	index, err := vectorutils.NewIndex(&vectorutils.NewIndexOpts{
		ProviderType: cfg.VectorStore.Provider,
		Path:         cfg.VectorStore.Path,
		Dimensions:   int(cfg.Embedding.Dimensions),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create vector index: %w", err)
	}

	graphStore, err := graphutils.NewStore(ctx, &graphutils.NewStoreOpts{
		ProviderType: cfg.GraphStore.Provider,
		URI:          cfg.GraphStore.URI,
		Username:     cfg.GraphStore.Username,
		Password:     cfg.GraphStore.Password,
		Database:     cfg.GraphStore.Database,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create graph store: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   int(cfg.Embedding.Dimensions),
		CacheEntries: cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create embedder: %w", err)
	}

	analyzer, err := analysisutils.NewAnalyzer(&analysisutils.NewAnalyzerOpts{
		ProviderType: cfg.Analysis.Provider,
		Model:        cfg.Analysis.Model,
		TargetURL:    cfg.Analysis.Target,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create analyzer: %w", err)
	}

	requestStore, err := accessutils.NewStore(ctx, &accessutils.NewStoreOpts{
		ProviderType: cfg.Storage.Provider,
		ConnString:   cfg.Storage.PostgresDSN,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create access request store: %w", err)
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create event publisher: %w", err)
	}

	controller, err := access.NewController(requestStore, access.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create access controller: %w", err)
	}

	episodicLayer, err := episodic.NewLayer(episodic.Config{
		Index:      index,
		Embedder:   embedder,
		Authorizer: controller,
		Decay:      decay,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create episodic layer: %w", err)
	}

	semanticLayer, err := semantic.NewLayer(semantic.Config{
		Store:  graphStore,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create semantic layer: %w", err)
	}

	extractor, err := extract.NewExtractor(extract.Config{
		Analyzer: analyzer,
		Decay:    decay,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create extractor: %w", err)
	}

	consolidationEngine, err := consolidation.NewEngine(consolidation.Config{
		Episodic:      episodicLayer,
		Extractor:     extractor,
		Semantic:      semanticLayer,
		Authorizer:    controller,
		Threshold:     cfg.Consolidation.Threshold,
		Cooldown:      cooldown,
		MinImportance: cfg.Consolidation.MinImportance,
		Decay:         decay,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create consolidation engine: %w", err)
	}

	router, err := query.NewRouter(query.Config{
		Episodic:       episodicLayer,
		Semantic:       semanticLayer,
		Analyzer:       analyzer,
		Authorizer:     controller,
		SemanticWeight: cfg.Query.SemanticWeight,
		EpisodicWeight: cfg.Query.EpisodicWeight,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create query router: %w", err)
	}

	return New(Config{
		Episodic:      episodicLayer,
		Semantic:      semanticLayer,
		Access:        controller,
		Consolidation: consolidationEngine,
		Router:        router,
		Extractor:     extractor,
		Publisher:     publisher,
		Workers:       cfg.Consolidation.Workers,
		QueueSize:     cfg.Consolidation.QueueSize,
		Logger:        logger,
	})
}

// parseDuration treats the empty string as zero so unset config fields fall
// through to each component's default.
func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return d, nil
}
