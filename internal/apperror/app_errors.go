package apperror

import "errors"

var (
	ErrConfiguration    = errors.New("invalid game configuration")
	ErrOutOfRange       = errors.New("tile index out of range")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrSessionNotFound  = errors.New("session not found")
)
