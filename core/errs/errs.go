package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind int

const (
	// KindUnknown is the zero value; it never matches a sentinel.
	KindUnknown Kind = iota
	// KindNotFound means the requested record, session or feature does not exist.
	KindNotFound
	// KindStoreUnavailable means a backing store (Redis, Postgres, object storage) failed.
	KindStoreUnavailable
	// KindValidationFailed means the input could not be serialised or did not pass checks.
	KindValidationFailed
	// KindPartialFailure means some writes landed before the operation aborted.
	KindPartialFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindValidationFailed:
		return "validation_failed"
	case KindPartialFailure:
		return "partial_failure"
	default:
		return "unknown"
	}
}

// Error carries a Kind, the operation that failed and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind != KindUnknown && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrValidationFailed = &Error{Kind: KindValidationFailed}
	ErrPartialFailure   = &Error{Kind: KindPartialFailure}
)

// E builds an *Error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
