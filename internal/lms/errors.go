package lms

import "fmt"

// TransportError is a network or HTTP-layer failure. Retryable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("lms: %s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a response body the client could not make sense of.
// Not retryable without investigation.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("lms: %s: protocol error: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RemoteFault is a structured exception returned by the LMS. Retryable only
// if the input changes. The original message and code are carried for logs,
// never shown to end users directly.
type RemoteFault struct {
	Op        string
	Exception string
	ErrorCode string
	Message   string
}

func (e *RemoteFault) Error() string {
	return fmt.Sprintf("lms: %s: remote fault %s (%s): %s", e.Op, e.Exception, e.ErrorCode, e.Message)
}

// ValidationError is a caller-side rejection raised before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lms: invalid %s: %s", e.Field, e.Reason)
}
