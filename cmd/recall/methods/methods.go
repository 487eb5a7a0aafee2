// Package methodscmder provides the methods command listing the retrieval
// method registry.
package methodscmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/retrieval"
)

const methodsLongDesc string = `List retrieval methods and the ports they are served on.

Each method is served by its own retrieval service at http://<host>:<port>.
The built-in table can be changed with a [retrieval.ports] section in
config.toml:

  [retrieval.ports]
  bm25 = 7030

Example:
  recall methods`

const methodsShortDesc string = "List retrieval methods"

type methodsCommander struct {
	host     string
	registry retrieval.Registry
	out      io.Writer
}

func NewMethodsCmd() *cobra.Command {
	cmder := &methodsCommander{}

	cmd := &cobra.Command{
		Use:   "methods",
		Short: methodsShortDesc,
		Long:  methodsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagHost})
			cmder.host = v.GetString("retrieval.host")

			ports, err := config.PortOverrides(v)
			if err != nil {
				return err
			}
			cmder.registry, err = retrieval.DefaultRegistry().WithOverrides(ports)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagHost, &cmder.host)

	return cmd
}

func (c *methodsCommander) run() error {
	defaults := retrieval.DefaultRegistry()

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Retrieval methods"))
	for _, name := range c.registry.Names() {
		port := c.registry[retrieval.Method(name)]
		url := fmt.Sprintf("http://%s:%d/search", c.host, port)

		line := fmt.Sprintf("  %-14s %5d  %s", name, port, cliui.DimStyle.Render(url))
		if def, ok := defaults[retrieval.Method(name)]; !ok || def != port {
			line += "  " + cliui.KeyStyle.Render("(overridden)")
		}
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintln(c.out)

	return nil
}
