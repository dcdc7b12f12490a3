package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrInvalidID     = errors.New("invalid snowflake id")
	ErrNotCategory   = errors.New("channel is not a category")
	ErrInvalidKind   = errors.New("unknown channel kind")
)
