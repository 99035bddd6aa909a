package errors

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Error kinds surfaced by the relay. Match them with errors.Is.
var (
	ErrTransportFailure    = errors.New("transport failure")
	ErrCorrelationNotFound = errors.New("correlation not found")
	ErrStoreFailure        = errors.New("store failure")
	ErrBadCommandArgument  = errors.New("bad command argument")
)

var kinds = []error{
	ErrTransportFailure,
	ErrCorrelationNotFound,
	ErrStoreFailure,
	ErrBadCommandArgument,
}

type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.cause
}

func classify(kind, cause error, message string) error {
	if cause == nil {
		return nil
	}
	err := error(&kindError{kind: kind, cause: cause})
	if message != "" {
		err = pkgerrors.WithMessage(err, message)
	}
	return err
}

// Transport marks cause as a failed outbound delivery.
func Transport(cause error, message string) error {
	return classify(ErrTransportFailure, cause, message)
}

// Store marks cause as an unavailable persistence layer.
func Store(cause error, message string) error {
	return classify(ErrStoreFailure, cause, message)
}

// BadArgument reports malformed command input.
func BadArgument(message string) error {
	return pkgerrors.WithMessage(ErrBadCommandArgument, message)
}

// Kind returns the relay error kind err belongs to, or nil when it is none of them.
func Kind(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
