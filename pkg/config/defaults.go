package config

const (
	defaultLogLevel = "info"

	defaultBaseDirEnv   = "RECALL_HOME"
	defaultLocalAddress = "127.0.0.1:6379"

	defaultRetrievalHost   = "localhost"
	defaultRetrievalMethod = "dense_small"
	defaultTopK            = 10
	defaultTimeoutSeconds  = 30

	defaultAPIListen = ":8090"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "recall.retrievals"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
		Cluster: ClusterConfig{
			BaseDirEnv:   defaultBaseDirEnv,
			LocalAddress: defaultLocalAddress,
		},
		Retrieval: RetrievalConfig{
			Host:           defaultRetrievalHost,
			Method:         defaultRetrievalMethod,
			TopK:           defaultTopK,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
