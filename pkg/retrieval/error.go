package retrieval

import "errors"

var (
	// ErrUnknownMethod is returned when a retrieval method is not in the registry.
	ErrUnknownMethod = errors.New("unknown retrieval method")

	// ErrRetrieval is the parent of every failure to obtain results from a
	// retrieval backend.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrRequest is returned when the request could not be sent or timed out.
	ErrRequest = errors.New("retrieval request failed")

	// ErrStatus is returned when the backend answers with a non-2xx status.
	ErrStatus = errors.New("retrieval service returned an error status")

	// ErrDecode is returned when the backend response cannot be decoded.
	ErrDecode = errors.New("retrieval response could not be decoded")
)

// Error wraps a specific retrieval failure so that errors.Is matches both
// ErrRetrieval and the specific sentinel.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRetrieval, e.Kind}
	}
	return []error{ErrRetrieval, e.Kind, e.Err}
}
