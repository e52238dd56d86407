package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g.,
// --embedding-provider on both "mnemo remember" and "mnemo recall").
type Flag struct {
	// Name is the long flag name (e.g. "embedding-provider").
	Name string

	// Shorthand is the one-letter short flag (e.g. "e"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "embedding.provider").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddFloat64Flag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagStorageProvider = "storage-provider"
	FlagPostgresDSN     = "postgres-dsn"

	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStorePath = "vector-store-path"

	FlagGraphStoreProv = "graph-store-provider"
	FlagGraphStoreURI  = "graph-store-uri"

	FlagEmbeddingProv  = "embedding-provider"
	FlagEmbeddingTgt   = "embedding-target"
	FlagEmbeddingModel = "embedding-model"
	FlagEmbeddingDims  = "embedding-dimensions"

	FlagAnalysisProv  = "analysis-provider"
	FlagAnalysisModel = "analysis-model"
	FlagAnalysisTgt   = "analysis-target"

	FlagThreshold = "threshold"
	FlagBatchSize = "batch-size"
	FlagWorkers   = "workers"
	FlagQueueSize = "queue-size"

	FlagEventsProv   = "events-provider"
	FlagEventsBroker = "events-brokers"
	FlagEventsTopic  = "events-topic"
)

// DefaultFlagSet maps every registry key to its flag definition. Commands
// pass this to AddStringFlag and friends so the same logical flag keeps one
// name, viper key, and description everywhere it appears.
var DefaultFlagSet = FlagSet{
	FlagStorageProvider: {Name: "storage-provider", ViperKey: "storage.provider", Description: "Cross-domain request store provider (memory, postgres)"},
	FlagPostgresDSN:     {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "Postgres DSN for the request store"},

	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector index provider (memory, sqlitevec, chromem)"},
	FlagVectorStorePath: {Name: "vector-store-path", ViperKey: "vector_store.path", Description: "Path to the on-disk vector index"},

	FlagGraphStoreProv: {Name: "graph-store-provider", ViperKey: "graph_store.provider", Description: "Graph store provider (memory, neo4j)"},
	FlagGraphStoreURI:  {Name: "graph-store-uri", ViperKey: "graph_store.uri", Description: "Graph store connection URI"},

	FlagEmbeddingProv:  {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (mock, ollama)"},
	FlagEmbeddingTgt:   {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding server URL"},
	FlagEmbeddingModel: {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:  {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding vector dimensions"},

	FlagAnalysisProv:  {Name: "analysis-provider", ViperKey: "analysis.provider", Description: "Concept analyzer provider (heuristic, anthropic, ollama)"},
	FlagAnalysisModel: {Name: "analysis-model", ViperKey: "analysis.model", Description: "Analyzer model name"},
	FlagAnalysisTgt:   {Name: "analysis-target", ViperKey: "analysis.target", Description: "Analyzer server URL"},

	FlagThreshold: {Name: "threshold", ViperKey: "consolidation.threshold", Description: "Promotion confidence threshold"},
	FlagBatchSize: {Name: "batch-size", Shorthand: "b", ViperKey: "consolidation.batch_size", Description: "Records per consolidation pass"},
	FlagWorkers:   {Name: "workers", ViperKey: "consolidation.workers", Description: "Background consolidation workers"},
	FlagQueueSize: {Name: "queue-size", ViperKey: "consolidation.queue_size", Description: "Background consolidation queue size"},

	FlagEventsProv:   {Name: "events-provider", ViperKey: "events.provider", Description: "Event publisher provider (nop, kafka)"},
	FlagEventsBroker: {Name: "events-brokers", ViperKey: "events.brokers", Description: "Kafka broker addresses"},
	FlagEventsTopic:  {Name: "events-topic", ViperKey: "events.topic", Description: "Event topic name"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloat64Flag registers a float64 flag on cmd from the given FlagSet.
func AddFloat64Flag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultFloat64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultFloat64 returns the default float64 value for a viper key from NewDefaultConfig.
func defaultFloat64(viperKey string) float64 {
	v := viper.New()
	setViperDefaults(v)
	return v.GetFloat64(viperKey)
}
