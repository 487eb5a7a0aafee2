package clustercmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/cluster"
	"github.com/papercomputeco/recall/pkg/cluster/ray"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/logger"
)

const initLongDesc string = `Initialize the cluster client.

Without flags a local head node is started. Its working directory is
<base>/ray, where <base> is the value of the environment variable named by
cluster.base_dir_env (RECALL_HOME by default) or the system temp dir. The
directory is exported as RAY_TMPDIR.

With --force-remote the client connects to cluster.remote_endpoint instead.
If no endpoint is configured a warning is logged and a local node is started.

Examples:
  recall cluster init
  recall cluster init --force-remote --remote-endpoint http://10.0.0.5:8265`

const initShortDesc string = "Start or connect to the compute cluster"

type initCommander struct {
	forceRemote    bool
	remoteEndpoint string
	baseDirEnv     string
	localAddress   string
	logLevel       string

	// client overrides the ray client in tests
	client cluster.Client

	out    io.Writer
	debug  bool
	logger *slog.Logger
}

func newInitCmd() *cobra.Command {
	return newInitCmdFor(&initCommander{})
}

func newInitCmdFor(cmder *initCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagRemoteEndpoint,
				config.FlagLogLevel,
			})

			cmder.remoteEndpoint = v.GetString("cluster.remote_endpoint")
			cmder.baseDirEnv = v.GetString("cluster.base_dir_env")
			cmder.localAddress = v.GetString("cluster.local_address")
			cmder.logLevel = v.GetString("logging.level")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&cmder.forceRemote, "force-remote", false, "Connect to the configured remote endpoint")
	config.AddStringFlag(cmd, config.Flags, config.FlagRemoteEndpoint, &cmder.remoteEndpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogLevel, &cmder.logLevel)

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []logger.Option{logger.WithTerminal(os.Stderr), logger.WithLevel(c.logLevel)}
	if c.debug {
		opts = append(opts, logger.WithDebug(true))
	}
	c.logger = logger.New(opts...)

	client := c.client
	if client == nil {
		client = ray.New(ray.Config{LocalAddress: c.localAddress}, c.logger)
	}

	initializer, err := cluster.NewInitializer(cluster.Config{
		RemoteEndpoint: c.remoteEndpoint,
		BaseDirEnv:     c.baseDirEnv,
		LogLevel:       c.logLevel,
	}, client, c.logger)
	if err != nil {
		return err
	}

	conn, err := initializer.Init(ctx, c.forceRemote)
	if err != nil {
		return err
	}

	mode := "local"
	if conn.Address != "" {
		mode = "remote"
	}

	fmt.Fprintf(c.out, "\n  %s Cluster client initialized\n\n", cliui.SuccessMark)
	fmt.Fprintf(c.out, "  %s\n", cliui.KeyValue("mode", mode))
	fmt.Fprintf(c.out, "  %s\n", cliui.KeyValue("address", conn.BoundAddress))
	if conn.TempDir != "" {
		fmt.Fprintf(c.out, "  %s\n", cliui.KeyValue("temp dir", conn.TempDir))
	}
	fmt.Fprintln(c.out)

	return nil
}
