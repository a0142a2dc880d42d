package service

import "errors"

var (
	// ErrInvalidInput marks synchronous validation failures; nothing is
	// persisted when it is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a post id does not resolve to a record.
	ErrNotFound = errors.New("post not found")

	// ErrAlreadyPosted guards the terminal state: published records are
	// immutable.
	ErrAlreadyPosted = errors.New("post already published")

	// ErrNoCredentials is returned when no Mastodon account is connected.
	ErrNoCredentials = errors.New("mastodon credentials not configured")
)
