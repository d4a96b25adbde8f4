package domain

import "errors"

var (
	DatabaseError    = errors.New("database-error")
	CacheError       = errors.New("cache-error")
	ErrNotFound      = errors.New("not-found")
	ErrUnknownColumn = errors.New("unknown-column")
)

var ErrUserNotFound = errors.New("user-not-found")
