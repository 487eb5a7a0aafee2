// Package configcmder provides the config command for managing persistent
// recall configuration stored in the .recall/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent recall configuration.

Configuration is stored as config.toml in the .recall/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  logging.level,
  cluster.remote_endpoint, cluster.base_dir_env, cluster.local_address,
  retrieval.host, retrieval.method, retrieval.top_k, retrieval.timeout_seconds,
  api.listen,
  events.provider, events.brokers, events.topic

Method ports are overridden in the [retrieval.ports] table, edited directly in
config.toml.

Use subcommands to get, set, or list configuration values:
  recall config set <key> <value>    Set a configuration value
  recall config get <key>            Get a configuration value
  recall config list                 List all configuration values

Examples:
  recall config set retrieval.host 10.0.0.5
  recall config set retrieval.method hybrid_small
  recall config get retrieval.host
  recall config list`

const configShortDesc string = "Manage persistent recall configuration"

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
