package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a notification failure
type Kind int

// Failure kinds
const (
	KindNotFound Kind = iota + 1000
	KindInvalidDestination
	KindTransient
	KindInvalid
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidDestination:
		return "invalid_destination"
	case KindTransient:
		return "transient"
	case KindInvalid:
		return "invalid"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// NotifyError represents a failure inside a notification handler
type NotifyError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *NotifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// Error constructors
func NotFound(resource string, err error) *NotifyError {
	return &NotifyError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func InvalidDestination(userID string, err error) *NotifyError {
	return &NotifyError{
		Kind:    KindInvalidDestination,
		Message: fmt.Sprintf("invalid delivery destination for user %s", userID),
		Err:     err,
	}
}

func Transient(message string, err error) *NotifyError {
	return &NotifyError{
		Kind:    KindTransient,
		Message: message,
		Err:     err,
	}
}

func Invalid(message string, err error) *NotifyError {
	return &NotifyError{
		Kind:    KindInvalid,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *NotifyError {
	return &NotifyError{
		Kind:    KindInternal,
		Message: "internal error",
		Err:     err,
	}
}

// IsKind reports whether err carries a NotifyError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ne *NotifyError
	if stderrors.As(err, &ne) {
		return ne.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ne *NotifyError
	if stderrors.As(err, &ne) {
		return ne.Kind
	}
	return KindInternal
}
