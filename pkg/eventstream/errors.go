package eventstream

import "errors"

var (
	// ErrNilRetrievalEvent indicates a nil retrieval event payload was provided to a publisher.
	ErrNilRetrievalEvent = errors.New("nil retrieval event")

	// ErrUnknownProvider indicates an events.provider value with no publisher.
	ErrUnknownProvider = errors.New("unknown eventstream provider")
)
