package config

const (
	defaultStoreProvider = "memory"

	defaultEmbeddingProvider   = "mock"
	defaultEmbeddingDimensions = 384

	defaultAnalysisProvider = "heuristic"

	defaultThreshold   = 0.6
	defaultBatchSize   = 50
	defaultCooldown    = "1h"
	defaultDecayWindow = "720h"
	defaultDecayFloor  = 0.1
	defaultWorkers     = 3
	defaultQueueSize   = 256

	defaultSemanticWeight = 0.6
	defaultEpisodicWeight = 0.4

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "mnemo.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// Everything runs in-process with no external services, so a fresh
// install works before any infrastructure exists.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStoreProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultStoreProvider,
		},
		GraphStore: GraphStoreConfig{
			Provider: defaultStoreProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Dimensions: defaultEmbeddingDimensions,
		},
		Analysis: AnalysisConfig{
			Provider: defaultAnalysisProvider,
		},
		Consolidation: ConsolidationConfig{
			Threshold:   defaultThreshold,
			BatchSize:   defaultBatchSize,
			Cooldown:    defaultCooldown,
			DecayWindow: defaultDecayWindow,
			DecayFloor:  defaultDecayFloor,
			Workers:     defaultWorkers,
			QueueSize:   defaultQueueSize,
		},
		Query: QueryConfig{
			SemanticWeight: defaultSemanticWeight,
			EpisodicWeight: defaultEpisodicWeight,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
