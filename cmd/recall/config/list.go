package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/retrieval"
)

const listLongDesc string = `List all configuration values.

Displays all configuration keys and their current values from the
config.toml file stored in the .recall/ directory, followed by the
effective method to port registry.

Examples:
  recall config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(out io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(out, cfger.GetTarget())

	keys := config.ValidConfigKeys()

	// Find the longest key name for alignment.
	maxLen := 0
	for _, k := range keys {
		if len(k) > maxLen {
			maxLen = len(k)
		}
	}

	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		if value == "" {
			fmt.Fprintf(out, "  %s = %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-*s", maxLen, key)), cliui.DimStyle.Render("<not set>"))
		} else {
			fmt.Fprintf(out, "  %s = %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-*s", maxLen, key)), cliui.ValueStyle.Render(fmt.Sprintf("%q", value)))
		}
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}
	registry, err := retrieval.DefaultRegistry().WithOverrides(cfg.Retrieval.Ports)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s\n", cliui.HeaderStyle.Render("[retrieval.ports]"))
	for _, name := range registry.Names() {
		fmt.Fprintf(out, "  %s = %d\n", cliui.KeyStyle.Render(fmt.Sprintf("%-*s", maxLen, name)), registry[retrieval.Method(name)])
	}
	fmt.Fprintln(out)

	return nil
}
