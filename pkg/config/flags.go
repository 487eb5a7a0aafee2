package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// cannot drift between "recall search" and "recall serve".
type Flag struct {
	// Name is the long flag name (e.g. "host").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "retrieval.host").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of registry keys to Flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagHost           = "host"
	FlagMethod         = "method"
	FlagTopK           = "top-k"
	FlagTimeout        = "timeout"
	FlagAPIListen      = "listen"
	FlagRemoteEndpoint = "remote-endpoint"
	FlagLogLevel       = "log-level"
	FlagEventsProvider = "events-provider"
	FlagEventsBrokers  = "events-brokers"
	FlagEventsTopic    = "events-topic"
)

// Flags is the registry shared by every recall command.
var Flags = FlagSet{
	FlagHost:           {Name: "host", ViperKey: "retrieval.host", Description: "Host running the retrieval services"},
	FlagMethod:         {Name: "method", Shorthand: "m", ViperKey: "retrieval.method", Description: "Retrieval method (bm25, dense_small, dense_large, hybrid_small, hybrid_large)"},
	FlagTopK:           {Name: "top-k", Shorthand: "k", ViperKey: "retrieval.top_k", Description: "Number of results to request"},
	FlagTimeout:        {Name: "timeout", ViperKey: "retrieval.timeout_seconds", Description: "Request timeout in seconds"},
	FlagAPIListen:      {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the gateway to listen on"},
	FlagRemoteEndpoint: {Name: "remote-endpoint", ViperKey: "cluster.remote_endpoint", Description: "Remote ray dashboard URL (http://head:8265) used with --force-remote"},
	FlagLogLevel:       {Name: "log-level", ViperKey: "logging.level", Description: "Log level (debug, info, warn, error)"},
	FlagEventsProvider: {Name: "events-provider", ViperKey: "events.provider", Description: "Retrieval event stream provider (nop, kafka)"},
	FlagEventsBrokers:  {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka broker addresses"},
	FlagEventsTopic:    {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for retrieval events"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}
