package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRetrievalCompleted is emitted after a search against a
	// retrieval service finishes, successfully or not.
	EventTypeRetrievalCompleted = "recall.retrieval.completed"
)

// RetrievalCompletedEvent is a transport-neutral event payload for a finished
// retrieval request.
type RetrievalCompletedEvent struct {
	SchemaVersion int              `json:"schema_version"`
	EventType     string           `json:"event_type"`
	EventID       string           `json:"event_id"`
	EmittedAt     time.Time        `json:"emitted_at"`
	Source        EventSource      `json:"source"`
	Request       RetrievalRequest `json:"request"`
	Result        RetrievalResult  `json:"result"`
}

// EventSource identifies which surface served the retrieval.
type EventSource struct {
	Surface string `json:"surface"`
	Host    string `json:"host,omitempty"`
}

// RetrievalRequest captures the query and its lifecycle timing.
type RetrievalRequest struct {
	Method      string    `json:"method"`
	Query       string    `json:"query"`
	TopK        int       `json:"top_k"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// RetrievalResult summarizes the outcome. Error is empty on success.
type RetrievalResult struct {
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// NewRetrievalCompletedEvent fills the envelope fields and derives the
// duration from the request timestamps.
func NewRetrievalCompletedEvent(source EventSource, req RetrievalRequest, count int, err error) *RetrievalCompletedEvent {
	req.DurationMs = req.CompletedAt.Sub(req.StartedAt).Milliseconds()

	result := RetrievalResult{Count: count}
	if err != nil {
		result.Error = err.Error()
	}

	return &RetrievalCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRetrievalCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Request:       req,
		Result:        result,
	}
}
