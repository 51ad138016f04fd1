package apperrors

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrNoCurrentSession  = errors.New("no current session")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrEmptyResponse     = errors.New("response is empty")
	ErrPersistFailed     = errors.New("persist failed")
)
