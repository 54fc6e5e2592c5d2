package shared

import "fmt"

// RemoteError reports a failed call to the storefront backend or the region
// directory. Op names the attempted operation (e.g. "listAddresses").
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "An error occurred"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

// Unwrap returns the underlying transport error, if any
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the shopper: the server message when one
// was sent, otherwise a generic one.
func (e *RemoteError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return "An error occurred"
}

// NewRemoteError creates a RemoteError for op
func NewRemoteError(op string, statusCode int, message string, err error) *RemoteError {
	return &RemoteError{
		Op:         op,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}
