package service

import "errors"

var (
	// ErrUserNotFound signals an operation on an identity id or nickname that
	// does not exist. Precondition violations are never swallowed.
	ErrUserNotFound = errors.New("user not found")
	// ErrNicknameTaken is the uniqueness race lost at commit time. The caller
	// decides whether to retry with a fresh candidate.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrEmailTaken mirrors ErrNicknameTaken for the email column.
	ErrEmailTaken = errors.New("email already registered")
)
