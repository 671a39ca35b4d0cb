package service

import (
	errors "github.com/Laisky/errors/v2"
)

// Kind classifies a failed action for the HTTP surface.
type Kind string

const (
	KindValidation Kind = "validation"
	KindOperation  Kind = "operation"
)

// ValidationError reports a missing or malformed input. It is returned before
// the client is called.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation error: <nil>"
	}
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// OperationError wraps any failure of the client or of normalizing its
// response. Prefix names the action, e.g. "Error posting tweet".
type OperationError struct {
	Prefix string
	Err    error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "operation error: <nil>"
	}
	if e.Prefix == "" {
		return e.Err.Error()
	}
	return e.Prefix + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error { return e.Err }

func failed(prefix string, err error) error {
	return &OperationError{Prefix: prefix, Err: errors.WithStack(err)}
}

var (
	errNoTweets        = errors.New("no tweets returned, check authentication")
	errNoBookmarks     = errors.New("no bookmarks returned, check authentication")
	errNoNotifications = errors.New("no notifications returned, check authentication")
	errNoReplies       = errors.New("No replies found for the tweet.")
)

// KindOf reports the kind of err; anything that is not a ValidationError is
// an operation failure.
func KindOf(err error) Kind {
	var v *ValidationError
	if errors.As(err, &v) {
		return KindValidation
	}
	return KindOperation
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
