package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mnemolabs/mnemo/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MNEMO_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MNEMO_EMBEDDING_PROVIDER, MNEMO_GRAPH_STORE_URI, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MNEMO_ANALYSIS_PROVIDER, MNEMO_EVENTS_TOPIC, etc.
	v.SetEnvPrefix("MNEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// ConfigFromViper materializes a Config from a viper instance built by
// InitViper, folding in values bound from flags and environment variables.
func ConfigFromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		VectorStore: VectorStoreConfig{
			Provider: v.GetString("vector_store.provider"),
			Path:     v.GetString("vector_store.path"),
		},
		GraphStore: GraphStoreConfig{
			Provider: v.GetString("graph_store.provider"),
			URI:      v.GetString("graph_store.uri"),
			Username: v.GetString("graph_store.username"),
			Password: v.GetString("graph_store.password"),
			Database: v.GetString("graph_store.database"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			CacheSize:  v.GetInt64("embedding.cache_size"),
		},
		Analysis: AnalysisConfig{
			Provider: v.GetString("analysis.provider"),
			Model:    v.GetString("analysis.model"),
			Target:   v.GetString("analysis.target"),
		},
		Consolidation: ConsolidationConfig{
			Threshold:     v.GetFloat64("consolidation.threshold"),
			BatchSize:     v.GetInt("consolidation.batch_size"),
			Cooldown:      v.GetString("consolidation.cooldown"),
			DecayWindow:   v.GetString("consolidation.decay_window"),
			DecayFloor:    v.GetFloat64("consolidation.decay_floor"),
			MinImportance: v.GetFloat64("consolidation.min_importance"),
			Workers:       v.GetUint("consolidation.workers"),
			QueueSize:     v.GetUint("consolidation.queue_size"),
		},
		Query: QueryConfig{
			SemanticWeight: v.GetFloat64("query.semantic_weight"),
			EpisodicWeight: v.GetFloat64("query.episodic_weight"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetStringSlice("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.path", d.VectorStore.Path)

	// Graph store
	v.SetDefault("graph_store.provider", d.GraphStore.Provider)
	v.SetDefault("graph_store.uri", d.GraphStore.URI)
	v.SetDefault("graph_store.username", d.GraphStore.Username)
	v.SetDefault("graph_store.password", d.GraphStore.Password)
	v.SetDefault("graph_store.database", d.GraphStore.Database)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)

	// Analysis
	v.SetDefault("analysis.provider", d.Analysis.Provider)
	v.SetDefault("analysis.model", d.Analysis.Model)
	v.SetDefault("analysis.target", d.Analysis.Target)

	// Consolidation
	v.SetDefault("consolidation.threshold", d.Consolidation.Threshold)
	v.SetDefault("consolidation.batch_size", d.Consolidation.BatchSize)
	v.SetDefault("consolidation.cooldown", d.Consolidation.Cooldown)
	v.SetDefault("consolidation.decay_window", d.Consolidation.DecayWindow)
	v.SetDefault("consolidation.decay_floor", d.Consolidation.DecayFloor)
	v.SetDefault("consolidation.min_importance", d.Consolidation.MinImportance)
	v.SetDefault("consolidation.workers", d.Consolidation.Workers)
	v.SetDefault("consolidation.queue_size", d.Consolidation.QueueSize)

	// Query
	v.SetDefault("query.semantic_weight", d.Query.SemanticWeight)
	v.SetDefault("query.episodic_weight", d.Query.EpisodicWeight)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
