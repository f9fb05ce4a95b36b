package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrPermission    = errors.New("permission denied")
	ErrNoActiveNote  = errors.New("no active note")
	ErrInvalid       = errors.New("invalid argument")
	ErrNoWorkspace   = errors.New("no workspace open")
)
