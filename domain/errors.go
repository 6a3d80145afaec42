package domain

import (
	"errors"
	"fmt"
)

// ErrTransportUnavailable marks broker/DB/storage/screenshot endpoints that
// could not be reached. Fatal to the process (exit non-zero).
var ErrTransportUnavailable = errors.New("transport unavailable")

// ErrNotFound is returned by the store when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrWaitTimeout marks an exhausted orchestrator wait budget.
var ErrWaitTimeout = errors.New("wait timeout")

// ErrUploadFailed marks a failed object-store upload. Non-fatal: the voice
// row completes with its local path.
var ErrUploadFailed = errors.New("storage upload failed")

// ProtocolError is a malformed message, a missing required field, or a
// length mismatch between collaborators. The affected unit is marked failed
// where applicable; the process itself continues to completion.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

func Protocolf(format string, args ...any) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// SynthesisError is a TTS collaborator failure. Its message is recorded on
// the failed voices row verbatim.
type SynthesisError struct {
	Message string
}

func (e *SynthesisError) Error() string {
	return e.Message
}

// RemoteError is a non-2xx reply from an HTTP collaborator.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (status %d): %s", e.Status, e.Body)
}
