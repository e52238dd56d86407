// Package configcmder provides the config command for managing persistent
// mnemo configuration stored in the .mnemo/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent mnemo configuration.

Configuration is stored as config.toml in the .mnemo/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.postgres_dsn,
  vector_store.provider, vector_store.path,
  graph_store.provider, graph_store.uri, graph_store.username,
  graph_store.password, graph_store.database,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.cache_size,
  analysis.provider, analysis.model, analysis.target,
  consolidation.threshold, consolidation.batch_size, consolidation.cooldown,
  consolidation.decay_window, consolidation.decay_floor,
  consolidation.min_importance, consolidation.workers, consolidation.queue_size,
  query.semantic_weight, query.episodic_weight,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  mnemo config set <key> <value>    Set a configuration value
  mnemo config get <key>            Get a configuration value
  mnemo config list                 List all configuration values

Examples:
  mnemo config set analysis.provider anthropic
  mnemo config set embedding.model nomic-embed-text
  mnemo config get consolidation.threshold
  mnemo config list`

const configShortDesc string = "Manage persistent mnemo configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
