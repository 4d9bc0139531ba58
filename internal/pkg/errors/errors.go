package errors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalid         = errors.New("invalid")
	ErrConflict        = errors.New("conflict")
	ErrTooMany         = errors.New("too many requests")
	ErrInternal        = errors.New("internal")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyDocument   = errors.New("document has no extractable text")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
