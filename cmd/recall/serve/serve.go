// Package servecmder provides the serve command running the retrieval gateway.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/recall/api"
	apisearch "github.com/papercomputeco/recall/api/search"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/eventstream/kafka"
	"github.com/papercomputeco/recall/pkg/eventstream/nop"
	"github.com/papercomputeco/recall/pkg/eventstream/worker"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/retrieval"
)

type serveCommander struct {
	listen   string
	host     string
	method   string
	topK     int
	timeout  int
	logLevel string
	noMCP    bool
	jsonLogs bool
	logFile  string

	eventsProvider string
	eventsBrokers  []string
	eventsTopic    string

	registry retrieval.Registry

	debug  bool
	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagHost,
	config.FlagMethod,
	config.FlagTopK,
	config.FlagTimeout,
	config.FlagLogLevel,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

const serveLongDesc string = `Run the recall gateway.

The gateway exposes the remote retrieval services over HTTP:
  GET  /ping          Health check
  GET  /v1/methods    Method to port registry
  POST /v1/search     {"query": "...", "method": "bm25", "top_k": 5}
  /mcp                MCP streamable HTTP endpoint with a search tool

A failing retrieval service answers 502. Every search publishes a
recall.retrieval.completed event to the configured event stream
(events.provider: nop or kafka).

Example:
  recall serve --listen :8090 --host 10.0.0.5
  recall serve --events-provider kafka --events-brokers localhost:9092`

const serveShortDesc string = "Run the retrieval gateway"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	var brokers string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			return cmder.load(v)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagHost, &cmder.host)
	config.AddStringFlag(cmd, config.Flags, config.FlagMethod, &cmder.method)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	config.AddIntFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogLevel, &cmder.logLevel)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.eventsTopic)
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write logs as JSON")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) load(v *viper.Viper) error {
	c.listen = v.GetString("api.listen")
	c.host = v.GetString("retrieval.host")
	c.method = v.GetString("retrieval.method")
	c.topK = v.GetInt("retrieval.top_k")
	c.timeout = v.GetInt("retrieval.timeout_seconds")
	c.logLevel = v.GetString("logging.level")
	c.eventsProvider = v.GetString("events.provider")
	c.eventsBrokers = config.Brokers(v)
	c.eventsTopic = v.GetString("events.topic")

	ports, err := config.PortOverrides(v)
	if err != nil {
		return err
	}
	c.registry, err = retrieval.DefaultRegistry().WithOverrides(ports)
	return err
}

func (c *serveCommander) run() error {
	closeLog, err := c.initLogger(os.Stdout)
	if err != nil {
		return err
	}
	defer closeLog()

	server, publisher, err := c.newServer()
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// initLogger builds the console logger and, with --log-file, tees every record
// as JSON into the file.
func (c *serveCommander) initLogger(console *os.File) (func(), error) {
	opts := []logger.Option{logger.WithTerminal(console), logger.WithLevel(c.logLevel)}
	if c.jsonLogs {
		opts = append(opts, logger.WithPretty(false), logger.WithJSON(true))
	}
	if c.debug {
		opts = append(opts, logger.WithDebug(true))
	}
	c.logger = logger.New(opts...)

	if c.logFile == "" {
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	fileOpts := []logger.Option{logger.WithWriter(f), logger.WithJSON(true), logger.WithLevel(c.logLevel)}
	if c.debug {
		fileOpts = append(fileOpts, logger.WithDebug(true))
	}
	c.logger = logger.Multi(c.logger, logger.New(fileOpts...))
	return func() { _ = f.Close() }, nil
}

func (c *serveCommander) newServer() (*api.Server, eventstream.Publisher, error) {
	publisher, err := newPublisher(c.eventsProvider, c.eventsBrokers, c.eventsTopic, c.logger)
	if err != nil {
		return nil, nil, err
	}

	searcher, err := apisearch.NewSearcher(apisearch.Config{
		Factory:       apisearch.RemoteFactory(c.registry, c.host, time.Duration(c.timeout)*time.Second, c.logger),
		Publisher:     publisher,
		DefaultMethod: c.method,
		DefaultTopK:   c.topK,
		Host:          c.host,
		Logger:        c.logger,
	})
	if err != nil {
		_ = publisher.Close()
		return nil, nil, err
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: c.listen,
		Registry:   c.registry,
		Searcher:   searcher,
		DisableMCP: c.noMCP,
	}, c.logger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, err
	}

	return server, publisher, nil
}

func newPublisher(provider string, brokers []string, topic string, log *slog.Logger) (eventstream.Publisher, error) {
	switch provider {
	case "", "nop":
		log.Info("retrieval events disabled")
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{Brokers: brokers, Topic: topic}, log)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		pool, err := worker.NewPool(&worker.Config{Publisher: p, Logger: log})
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("creating event worker pool: %w", err)
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: nop, kafka)", eventstream.ErrUnknownProvider, provider)
	}
}
