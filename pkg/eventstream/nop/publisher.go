// Package nop provides a publisher that validates and discards retrieval events.
package nop

import (
	"context"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishRetrieval validates input and otherwise does nothing.
func (p *Publisher) PublishRetrieval(_ context.Context, event *eventstream.RetrievalCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilRetrievalEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
