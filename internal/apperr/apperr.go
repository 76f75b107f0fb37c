// Package apperr defines the error kinds surfaced by the photo library and the
// machine-readable codes attached to them.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Infrastructure Kind = iota
	Validation
	Auth
	Permission
	NotFound
	ImageProcessing
	StateConflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Auth:
		return "auth"
	case Permission:
		return "permission"
	case NotFound:
		return "not_found"
	case ImageProcessing:
		return "image_processing"
	case StateConflict:
		return "state_conflict"
	}
	return "infrastructure"
}

const (
	CodeTransferError          = "transfer_error"
	CodeSizeExceeded           = "size_exceeded"
	CodeUnsupportedType        = "unsupported_type"
	CodeNoAlbumAvailable       = "no_album_available"
	CodeInvalidInput           = "invalid_input"
	CodeInvalidCredentials     = "invalid_credentials"
	CodeInvalidToken           = "invalid_token"
	CodeInsufficientPermission = "insufficient_permission"
	CodeForbidden              = "forbidden"
	CodeNotFound               = "not_found"
	CodeExpired                = "expired"
	CodeNothingToBackup        = "nothing_to_backup"
	CodeArchiveCreation        = "archive_creation_error"
	CodeImageProcessing        = "image_processing_error"
	CodeDuplicateName          = "duplicate_name"
	CodeInvalidState           = "invalid_state"
	CodeInfrastructure         = "infrastructure_error"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Limit   int64 // set for size_exceeded
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind Kind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

// Infra wraps an unexpected storage or database failure.
func Infra(msg string, err error) *Error {
	return Wrap(Infrastructure, CodeInfrastructure, msg, err)
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, CodeNotFound, fmt.Sprintf(format, args...))
}

func Invalid(msg string) *Error {
	return New(Validation, CodeInvalidInput, msg)
}

// KindOf reports the kind of err. Errors that are not *Error are
// infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Infrastructure
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInfrastructure
}

func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
