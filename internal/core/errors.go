package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeMissingReceiver   = "missing_receiver"
	ErrCodeAlreadyJoined     = "already_joined"
	ErrCodeUnknownConnection = "unknown_connection"
)

var (
	ErrBadRequest        = errors.New("bad request")
	ErrBlankSender       = errors.New("sender is required")
	ErrMissingReceiver   = errors.New("receiver is required")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrUnknownConnection = errors.New("unknown connection")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel so callers can use errors.Is.
func (e *CoreError) Unwrap() error {
	return e.err
}

func coreError(code string, err error) *CoreError {
	return &CoreError{Code: code, Message: err.Error(), err: err}
}
