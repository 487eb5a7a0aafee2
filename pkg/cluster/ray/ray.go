// Package ray implements cluster.Client on top of the ray CLI for local head
// nodes and the dashboard HTTP API for remote clusters.
package ray

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/cluster"
)

const (
	// DefaultLocalAddress is the GCS address of a local head node.
	DefaultLocalAddress = "127.0.0.1:6379"

	// DefaultBinary is the ray executable looked up on PATH.
	DefaultBinary = "ray"

	defaultProbeTimeout = 10 * time.Second
)

// ErrUnsupportedScheme is returned for remote endpoints that are not dashboard
// HTTP(S) URLs, such as ray:// client addresses.
var ErrUnsupportedScheme = errors.New("remote endpoint must be a ray dashboard http(s) URL")

// Runner executes name with args and env appended to the current environment,
// returning combined output.
type Runner func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Config configures the ray Client.
type Config struct {
	// LocalAddress is returned after a successful local start.
	// Defaults to DefaultLocalAddress.
	LocalAddress string

	// Binary is the ray executable. Defaults to DefaultBinary.
	Binary string

	// Runner overrides ExecRunner.
	Runner Runner

	// HTTPClient is used to probe remote dashboards.
	HTTPClient *http.Client
}

// Client starts or verifies a ray cluster.
type Client struct {
	localAddress string
	binary       string
	runner       Runner
	httpClient   *http.Client
	logger       *slog.Logger
}

// New creates a ray client.
func New(c Config, logger *slog.Logger) *Client {
	if c.LocalAddress == "" {
		c.LocalAddress = DefaultLocalAddress
	}
	if c.Binary == "" {
		c.Binary = DefaultBinary
	}
	if c.Runner == nil {
		c.Runner = ExecRunner
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: defaultProbeTimeout}
	}
	return &Client{
		localAddress: c.LocalAddress,
		binary:       c.Binary,
		runner:       c.Runner,
		httpClient:   c.HTTPClient,
		logger:       logger,
	}
}

// Init starts a local head node when opts.Address is empty, otherwise checks
// that the remote dashboard answers.
func (c *Client) Init(ctx context.Context, opts cluster.InitOptions) (string, error) {
	if opts.Address == "" {
		return c.startLocal(ctx, opts)
	}
	return c.checkRemote(ctx, opts.Address)
}

func (c *Client) startLocal(ctx context.Context, opts cluster.InitOptions) (string, error) {
	args := []string{"start", "--head"}
	if opts.TempDir != "" {
		args = append(args, "--temp-dir="+opts.TempDir)
	}
	if opts.LogLevel != "" {
		args = append(args, "--logging-level="+strings.ToLower(opts.LogLevel))
	}

	var env []string
	if opts.TempDir != "" {
		env = append(env, cluster.TmpDirEnv+"="+opts.TempDir)
	}

	c.logger.Debug("starting local ray head node", "binary", c.binary, "args", args)

	out, err := c.runner(ctx, env, c.binary, args...)
	if err != nil {
		return "", fmt.Errorf("ray start: %w: %s", err, strings.TrimSpace(string(out)))
	}

	c.logger.Info("started local ray head node", "address", c.localAddress)
	return c.localAddress, nil
}

func (c *Client) checkRemote(ctx context.Context, endpoint string) (string, error) {
	base := strings.TrimRight(endpoint, "/")
	if scheme, _, ok := strings.Cut(base, "://"); !ok {
		base = "http://" + base
	} else if s := strings.ToLower(scheme); s != "http" && s != "https" {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedScheme, endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/version", nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("connecting to ray cluster %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ray dashboard %s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.logger.Info("connected to remote ray cluster", "address", endpoint)
	return endpoint, nil
}

var _ cluster.Client = (*Client)(nil)
