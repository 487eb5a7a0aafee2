package cluster

import "errors"

var (
	// ErrTempDir is returned when the local working directory cannot be created.
	ErrTempDir = errors.New("could not create cluster temp directory")

	// ErrNilClient is returned by NewInitializer when no client is provided.
	ErrNilClient = errors.New("cluster client is required")
)
