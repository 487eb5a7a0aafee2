// Package cluster initializes a connection to a distributed-compute cluster,
// either a local head node or a remote endpoint, at most once per Initializer.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultBaseDirEnv names the environment variable holding the local base dir.
	DefaultBaseDirEnv = "RECALL_HOME"

	// FallbackBaseDir is the base dir used when the base dir env var is unset.
	FallbackBaseDir = "/tmp"

	// TmpDirEnv is set to the local working directory before a local start.
	TmpDirEnv = "RAY_TMPDIR"

	// workDirName is appended to the base dir to form the working directory.
	workDirName = "ray"

	// maxSocketPath is the POSIX limit for a unix socket path.
	maxSocketPath = 107

	// sessionSocketSuffix approximates what the runtime appends under its
	// temp dir for session sockets.
	sessionSocketSuffix = "/session_2006-01-02_15-04-05_000000_00000/sockets/plasma_store"
)

// InitOptions is what a Client receives for a single initialization.
type InitOptions struct {
	// Address is the remote endpoint. Empty starts or joins a local cluster.
	Address  string
	LogLevel string
	TempDir  string
}

// Client is the distributed-compute client the Initializer drives.
type Client interface {
	// Init connects to the cluster and returns the address it is bound to.
	Init(ctx context.Context, opts InitOptions) (string, error)
}

// Config configures an Initializer.
type Config struct {
	// RemoteEndpoint is used when Init is called with forceRemote.
	RemoteEndpoint string

	// BaseDirEnv names the environment variable holding the base directory.
	// Defaults to DefaultBaseDirEnv.
	BaseDirEnv string

	// LogLevel is forwarded to the client.
	LogLevel string
}

// Connection describes the established cluster connection.
type Connection struct {
	Initialized bool
	// Address is the requested remote endpoint, empty for local.
	Address string
	// BoundAddress is the address reported by the client.
	BoundAddress string
	LogLevel     string
	TempDir      string
}

// Initializer owns the process's cluster connection. The zero value is not
// usable; construct with NewInitializer.
type Initializer struct {
	cfg    Config
	client Client
	logger *slog.Logger

	mu   sync.Mutex
	conn *Connection
}

// NewInitializer creates an Initializer around client.
func NewInitializer(cfg Config, client Client, logger *slog.Logger) (*Initializer, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.BaseDirEnv == "" {
		cfg.BaseDirEnv = DefaultBaseDirEnv
	}
	return &Initializer{cfg: cfg, client: client, logger: logger}, nil
}

// Init connects once. Later calls log a warning and return the existing
// connection without touching the filesystem or environment. Concurrent first
// calls are serialized so only one reaches the client.
func (i *Initializer) Init(ctx context.Context, forceRemote bool) (*Connection, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.conn != nil {
		i.logger.Warn("using existing cluster client", "address", i.conn.BoundAddress)
		return i.conn, nil
	}

	opts := InitOptions{LogLevel: i.cfg.LogLevel}
	if forceRemote {
		if i.cfg.RemoteEndpoint == "" {
			i.logger.Warn("remote cluster requested but no remote endpoint is configured, starting locally")
		}
		opts.Address = i.cfg.RemoteEndpoint
	}

	if opts.Address == "" {
		dir, err := i.prepareLocalDir()
		if err != nil {
			return nil, err
		}
		opts.TempDir = dir
	}

	bound, err := i.client.Init(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing cluster client: %w", err)
	}

	i.conn = &Connection{
		Initialized:  true,
		Address:      opts.Address,
		BoundAddress: bound,
		LogLevel:     opts.LogLevel,
		TempDir:      opts.TempDir,
	}
	return i.conn, nil
}

// Connection returns the current connection, or nil before a successful Init.
func (i *Initializer) Connection() *Connection {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.conn
}

func (i *Initializer) prepareLocalDir() (string, error) {
	dir := LocalTempDir(i.cfg.BaseDirEnv)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrTempDir, dir, err)
	}

	i.logger.Info("using local cluster client with temporary directory", "dir", dir)

	if len(dir)+len(sessionSocketSuffix) > maxSocketPath {
		i.logger.Warn("temporary directory may exceed the unix socket path limit",
			"dir", dir,
			"limit", maxSocketPath,
		)
	}

	if err := os.Setenv(TmpDirEnv, dir); err != nil {
		return "", fmt.Errorf("setting %s: %w", TmpDirEnv, err)
	}
	return dir, nil
}

// LocalTempDir returns <base>/ray where base is the value of baseDirEnv, or
// FallbackBaseDir when unset. $TMPDIR is not consulted.
func LocalTempDir(baseDirEnv string) string {
	if baseDirEnv == "" {
		baseDirEnv = DefaultBaseDirEnv
	}
	base := os.Getenv(baseDirEnv)
	if base == "" {
		base = FallbackBaseDir
	}
	return filepath.Join(base, workDirName)
}
