package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads config.toml (if found via
// dotdir resolution), and binds environment variables with the RECALL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RECALL_RETRIEVAL_HOST, RECALL_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// PortOverrides returns the [retrieval.ports] table, mapping method names to
// ports that replace entries of the default registry.
func PortOverrides(v *viper.Viper) (map[string]int, error) {
	ports := map[string]int{}
	if !v.IsSet("retrieval.ports") {
		return ports, nil
	}

	if err := v.UnmarshalKey("retrieval.ports", &ports); err != nil {
		return nil, fmt.Errorf("decoding retrieval.ports: %w", err)
	}
	return ports, nil
}

// Brokers splits events.brokers into trimmed, non-empty addresses.
func Brokers(v *viper.Viper) []string {
	var brokers []string
	for _, b := range strings.Split(v.GetString("events.brokers"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("logging.level", d.Logging.Level)

	v.SetDefault("cluster.remote_endpoint", d.Cluster.RemoteEndpoint)
	v.SetDefault("cluster.base_dir_env", d.Cluster.BaseDirEnv)
	v.SetDefault("cluster.local_address", d.Cluster.LocalAddress)

	v.SetDefault("retrieval.host", d.Retrieval.Host)
	v.SetDefault("retrieval.method", d.Retrieval.Method)
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("retrieval.timeout_seconds", d.Retrieval.TimeoutSeconds)

	v.SetDefault("api.listen", d.API.Listen)

	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
