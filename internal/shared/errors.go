package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Input errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Runtime errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPoolClosed         = fmt.Errorf("worker pool closed")
)

// ErrorKind classifies a student record error for display and status mapping.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindDuplicateID
	KindNotFound
	KindDatabase
	KindFile
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindDuplicateID:
		return "duplicate_id"
	case KindNotFound:
		return "not_found"
	case KindDatabase:
		return "database_error"
	case KindFile:
		return "file_error"
	default:
		return "unknown_error"
	}
}

// Kind sentinels let callers use [errors.Is] against an [*Error] of the matching kind.
var (
	ErrValidation  = &Error{Kind: KindValidation, Message: "validation error"}
	ErrDuplicateID = &Error{Kind: KindDuplicateID, Message: "duplicate student id"}
	ErrNotFound    = &Error{Kind: KindNotFound, Message: "student not found"}
	ErrDatabase    = &Error{Kind: KindDatabase, Message: "database error"}
	ErrFile        = &Error{Kind: KindFile, Message: "file error"}
	ErrUnknown     = &Error{Kind: KindUnknown, Message: "unknown error"}
)

// Error is a student record failure carrying an [ErrorKind].
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an [*Error] of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the [ErrorKind] of the first [*Error] in err's chain, or [KindUnknown].
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func ValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation error: " + message}
}

func DuplicateIDError(id string) *Error {
	return &Error{Kind: KindDuplicateID, Message: "Student ID already exists: " + id}
}

func NotFoundError(id string) *Error {
	return &Error{Kind: KindNotFound, Message: "Student not found with ID: " + id}
}

func DatabaseError(message string, err error) *Error {
	return &Error{Kind: KindDatabase, Message: "Database error: " + message, Err: err}
}

func FileError(message string, err error) *Error {
	return &Error{Kind: KindFile, Message: "File error: " + message, Err: err}
}

func UnknownError(message string, err error) *Error {
	return &Error{Kind: KindUnknown, Message: message, Err: err}
}
