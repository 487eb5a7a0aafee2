package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent recall configuration stored as config.toml
// in the .recall/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Logging   LoggingConfig   `toml:"logging"`
	Cluster   ClusterConfig   `toml:"cluster"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	API       APIConfig       `toml:"api"`
	Events    EventsConfig    `toml:"events"`
}

// LoggingConfig holds settings shared by every command.
type LoggingConfig struct {
	Level string `toml:"level,omitempty"`
}

// ClusterConfig holds distributed-compute client settings.
type ClusterConfig struct {
	// RemoteEndpoint is the cluster address used when a remote connection is forced.
	RemoteEndpoint string `toml:"remote_endpoint,omitempty"`

	// BaseDirEnv names the environment variable holding the base path for the
	// local cluster's temporary directory.
	BaseDirEnv string `toml:"base_dir_env,omitempty"`

	// LocalAddress is the address reported for a locally started head node.
	LocalAddress string `toml:"local_address,omitempty"`
}

// RetrievalConfig holds remote retrieval service settings.
type RetrievalConfig struct {
	Host           string `toml:"host,omitempty"`
	Method         string `toml:"method,omitempty"`
	TopK           int    `toml:"top_k,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`

	// Ports overrides entries of the default method to port registry.
	Ports map[string]int `toml:"ports,omitempty"`
}

// APIConfig holds gateway server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig holds retrieval event stream settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of Kafka broker addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for %s: must be a positive integer", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"logging.level":           stringKey(func(c *Config) *string { return &c.Logging.Level }),
	"cluster.remote_endpoint": stringKey(func(c *Config) *string { return &c.Cluster.RemoteEndpoint }),
	"cluster.base_dir_env":    stringKey(func(c *Config) *string { return &c.Cluster.BaseDirEnv }),
	"cluster.local_address":   stringKey(func(c *Config) *string { return &c.Cluster.LocalAddress }),
	"retrieval.host":          stringKey(func(c *Config) *string { return &c.Retrieval.Host }),
	"retrieval.method":        stringKey(func(c *Config) *string { return &c.Retrieval.Method }),
	"retrieval.top_k":         intKey("retrieval.top_k", func(c *Config) *int { return &c.Retrieval.TopK }),
	"retrieval.timeout_seconds": intKey("retrieval.timeout_seconds",
		func(c *Config) *int { return &c.Retrieval.TimeoutSeconds }),
	"api.listen":      stringKey(func(c *Config) *string { return &c.API.Listen }),
	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
}

// orderedKeys matches the TOML section layout.
var orderedKeys = []string{
	"logging.level",
	"cluster.remote_endpoint",
	"cluster.base_dir_env",
	"cluster.local_address",
	"retrieval.host",
	"retrieval.method",
	"retrieval.top_k",
	"retrieval.timeout_seconds",
	"api.listen",
	"events.provider",
	"events.brokers",
	"events.topic",
}
