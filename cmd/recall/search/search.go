// Package searchcmder provides the search command for querying a remote
// retrieval service directly.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/recall/api/search"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/retrieval"
	"github.com/papercomputeco/recall/pkg/retrieval/remote"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

type searchCommander struct {
	query    string
	host     string
	method   string
	topK     int
	timeout  int
	jsonOut  bool
	logLevel string

	registry retrieval.Registry

	out    io.Writer
	errOut io.Writer
	debug  bool
	logger *slog.Logger
}

var searchFlags = []string{
	config.FlagHost,
	config.FlagMethod,
	config.FlagTopK,
	config.FlagTimeout,
	config.FlagLogLevel,
}

const searchLongDesc string = `Search a remote retrieval service.

Sends the query to the service for the selected method and prints the scored
documents in the order the service returned them. The service address is
http://<host>:<port>, where the port comes from the method registry (see
"recall methods").

Unlike the gateway's degraded mode, a failing service makes this command exit
with an error.

Example:
  recall search "what is reciprocal rank fusion"
  recall search "bm25 saturation" --method bm25 --top-k 5
  recall search "ray temp dir" --host 10.0.0.5 --json`

const searchShortDesc string = "Search a retrieval service"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, searchFlags)

			cmder.host = v.GetString("retrieval.host")
			cmder.method = v.GetString("retrieval.method")
			cmder.topK = v.GetInt("retrieval.top_k")
			cmder.timeout = v.GetInt("retrieval.timeout_seconds")
			cmder.logLevel = v.GetString("logging.level")

			ports, err := config.PortOverrides(v)
			if err != nil {
				return err
			}
			cmder.registry, err = retrieval.DefaultRegistry().WithOverrides(ports)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagHost, &cmder.host)
	config.AddStringFlag(cmd, config.Flags, config.FlagMethod, &cmder.method)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	config.AddIntFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogLevel, &cmder.logLevel)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print results as JSON")

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []logger.Option{logger.WithTerminal(os.Stderr), logger.WithLevel(c.logLevel)}
	if c.debug {
		opts = append(opts, logger.WithDebug(true))
	}
	c.logger = logger.New(opts...)

	r, err := remote.NewForMethod(c.registry, c.host, c.method, c.topK,
		time.Duration(c.timeout)*time.Second, c.logger)
	if err != nil {
		return err
	}

	var docs []retrieval.ScoredDocument
	search := func() error {
		var searchErr error
		docs, searchErr = r.Search(ctx, c.query)
		return searchErr
	}

	if c.jsonOut {
		err = search()
	} else {
		err = cliui.Step(c.errOut, fmt.Sprintf("Searching %s at %s", c.method, r.APIURL()), search)
	}
	if err != nil {
		return err
	}

	output := apisearch.BuildSearchOutput(c.query, c.method, docs)
	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	c.printOutput(output)
	return nil
}

func (c *searchCommander) printOutput(output *apisearch.SearchOutput) {
	if output.Count == 0 {
		fmt.Fprintln(c.out, "No results found.")
		return
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search Results for:"),
		idStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		fmt.Fprintf(c.out, "  %s  %s  %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.ScoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
			idStyle.Render(result.ID),
		)

		text := result.Text
		if text == "" {
			text = "(no text content)"
		}
		fmt.Fprintf(c.out, "  %s\n", previewStyle.Render(cliui.Preview(text, 80)))

		if source, ok := result.Metadata["source"]; ok {
			fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render(fmt.Sprintf("source: %v", source)))
		}
		fmt.Fprintln(c.out)
	}
}
