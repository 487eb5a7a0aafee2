package eventstream

import "context"

// Publisher publishes retrieval events to an event stream backend.
type Publisher interface {
	PublishRetrieval(ctx context.Context, event *RetrievalCompletedEvent) error
	Close() error
}
