package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrValidation         = errors.New("validation failed")
)
