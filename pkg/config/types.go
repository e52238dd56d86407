package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent mnemo configuration stored as config.toml
// in the .mnemo/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version       int                 `toml:"version"`
	Storage       StorageConfig       `toml:"storage"`
	VectorStore   VectorStoreConfig   `toml:"vector_store"`
	GraphStore    GraphStoreConfig    `toml:"graph_store"`
	Embedding     EmbeddingConfig     `toml:"embedding"`
	Analysis      AnalysisConfig      `toml:"analysis"`
	Consolidation ConsolidationConfig `toml:"consolidation"`
	Query         QueryConfig         `toml:"query"`
	Events        EventsConfig        `toml:"events"`
}

// StorageConfig holds settings for the cross-domain request store.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig holds vector index settings for the episodic layer.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Path     string `toml:"path,omitempty"`
}

// GraphStoreConfig holds graph store settings for the semantic layer.
type GraphStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	URI      string `toml:"uri,omitempty"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	Database string `toml:"database,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	CacheSize  int64  `toml:"cache_size,omitempty"`
}

// AnalysisConfig holds concept analyzer settings.
type AnalysisConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// ConsolidationConfig holds consolidation engine tuning. Durations are
// strings in time.ParseDuration syntax (e.g. "1h", "720h").
type ConsolidationConfig struct {
	Threshold     float64 `toml:"threshold,omitempty"`
	BatchSize     int     `toml:"batch_size,omitempty"`
	Cooldown      string  `toml:"cooldown,omitempty"`
	DecayWindow   string  `toml:"decay_window,omitempty"`
	DecayFloor    float64 `toml:"decay_floor,omitempty"`
	MinImportance float64 `toml:"min_importance,omitempty"`
	Workers       uint    `toml:"workers,omitempty"`
	QueueSize     uint    `toml:"queue_size,omitempty"`
}

// QueryConfig holds result merge weights for the query router.
type QueryConfig struct {
	SemanticWeight float64 `toml:"semantic_weight,omitempty"`
	EpisodicWeight float64 `toml:"episodic_weight,omitempty"`
}

// EventsConfig holds event publisher settings.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.path": {
		get: func(c *Config) string { return c.VectorStore.Path },
		set: func(c *Config, v string) error { c.VectorStore.Path = v; return nil },
	},
	"graph_store.provider": {
		get: func(c *Config) string { return c.GraphStore.Provider },
		set: func(c *Config, v string) error { c.GraphStore.Provider = v; return nil },
	},
	"graph_store.uri": {
		get: func(c *Config) string { return c.GraphStore.URI },
		set: func(c *Config, v string) error { c.GraphStore.URI = v; return nil },
	},
	"graph_store.username": {
		get: func(c *Config) string { return c.GraphStore.Username },
		set: func(c *Config, v string) error { c.GraphStore.Username = v; return nil },
	},
	"graph_store.password": {
		get: func(c *Config) string { return c.GraphStore.Password },
		set: func(c *Config, v string) error { c.GraphStore.Password = v; return nil },
	},
	"graph_store.database": {
		get: func(c *Config) string { return c.GraphStore.Database },
		set: func(c *Config, v string) error { c.GraphStore.Database = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string { return formatUint(c.Embedding.Dimensions) },
		set: func(c *Config, v string) error {
			n, err := parseUintValue("embedding.dimensions", v)
			if err != nil {
				return err
			}
			c.Embedding.Dimensions = n
			return nil
		},
	},
	"embedding.cache_size": {
		get: func(c *Config) string {
			if c.Embedding.CacheSize == 0 {
				return ""
			}
			return strconv.FormatInt(c.Embedding.CacheSize, 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for embedding.cache_size: %q", v)
			}
			c.Embedding.CacheSize = n
			return nil
		},
	},
	"analysis.provider": {
		get: func(c *Config) string { return c.Analysis.Provider },
		set: func(c *Config, v string) error { c.Analysis.Provider = v; return nil },
	},
	"analysis.model": {
		get: func(c *Config) string { return c.Analysis.Model },
		set: func(c *Config, v string) error { c.Analysis.Model = v; return nil },
	},
	"analysis.target": {
		get: func(c *Config) string { return c.Analysis.Target },
		set: func(c *Config, v string) error { c.Analysis.Target = v; return nil },
	},
	"consolidation.threshold": {
		get: func(c *Config) string { return formatFloat(c.Consolidation.Threshold) },
		set: func(c *Config, v string) error {
			f, err := parseUnitFloat("consolidation.threshold", v)
			if err != nil {
				return err
			}
			c.Consolidation.Threshold = f
			return nil
		},
	},
	"consolidation.batch_size": {
		get: func(c *Config) string {
			if c.Consolidation.BatchSize == 0 {
				return ""
			}
			return strconv.Itoa(c.Consolidation.BatchSize)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for consolidation.batch_size: %q", v)
			}
			c.Consolidation.BatchSize = n
			return nil
		},
	},
	"consolidation.cooldown": {
		get: func(c *Config) string { return c.Consolidation.Cooldown },
		set: func(c *Config, v string) error {
			if err := parseDurationValue("consolidation.cooldown", v); err != nil {
				return err
			}
			c.Consolidation.Cooldown = v
			return nil
		},
	},
	"consolidation.decay_window": {
		get: func(c *Config) string { return c.Consolidation.DecayWindow },
		set: func(c *Config, v string) error {
			if err := parseDurationValue("consolidation.decay_window", v); err != nil {
				return err
			}
			c.Consolidation.DecayWindow = v
			return nil
		},
	},
	"consolidation.decay_floor": {
		get: func(c *Config) string { return formatFloat(c.Consolidation.DecayFloor) },
		set: func(c *Config, v string) error {
			f, err := parseUnitFloat("consolidation.decay_floor", v)
			if err != nil {
				return err
			}
			c.Consolidation.DecayFloor = f
			return nil
		},
	},
	"consolidation.min_importance": {
		get: func(c *Config) string { return formatFloat(c.Consolidation.MinImportance) },
		set: func(c *Config, v string) error {
			f, err := parseUnitFloat("consolidation.min_importance", v)
			if err != nil {
				return err
			}
			c.Consolidation.MinImportance = f
			return nil
		},
	},
	"consolidation.workers": {
		get: func(c *Config) string { return formatUint(c.Consolidation.Workers) },
		set: func(c *Config, v string) error {
			n, err := parseUintValue("consolidation.workers", v)
			if err != nil {
				return err
			}
			c.Consolidation.Workers = n
			return nil
		},
	},
	"consolidation.queue_size": {
		get: func(c *Config) string { return formatUint(c.Consolidation.QueueSize) },
		set: func(c *Config, v string) error {
			n, err := parseUintValue("consolidation.queue_size", v)
			if err != nil {
				return err
			}
			c.Consolidation.QueueSize = n
			return nil
		},
	},
	"query.semantic_weight": {
		get: func(c *Config) string { return formatFloat(c.Query.SemanticWeight) },
		set: func(c *Config, v string) error {
			f, err := parseUnitFloat("query.semantic_weight", v)
			if err != nil {
				return err
			}
			c.Query.SemanticWeight = f
			return nil
		},
	},
	"query.episodic_weight": {
		get: func(c *Config) string { return formatFloat(c.Query.EpisodicWeight) },
		set: func(c *Config, v string) error {
			f, err := parseUnitFloat("query.episodic_weight", v)
			if err != nil {
				return err
			}
			c.Query.EpisodicWeight = f
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			var brokers []string
			for _, b := range strings.Split(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					brokers = append(brokers, b)
				}
			}
			c.Events.Brokers = brokers
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseUintValue(key, v string) (uint, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return uint(n), nil
}

// parseUnitFloat parses v and rejects values outside [0, 1].
func parseUnitFloat(key, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("invalid value for %s: %v is outside [0, 1]", key, f)
	}
	return f, nil
}

func parseDurationValue(key, v string) error {
	if _, err := time.ParseDuration(v); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}
