package domain

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrKeyCorruption indicates a wrapped tenant key failed authentication,
	// either because it was produced under a different master secret or
	// because it was tampered with. Never retried.
	ErrKeyCorruption = errors.New("wrapped key corrupt or foreign")

	// ErrDecryption indicates a content token failed authentication or is
	// malformed. Fatal to the read that triggered it; never retried.
	ErrDecryption = errors.New("content decryption failed")

	// ErrKeyUnavailable indicates the owning chat's key could not be
	// resolved. Wraps ErrNotFound when the chat row itself is missing.
	ErrKeyUnavailable = errors.New("tenant key unavailable")

	// ErrInvalidStateTransition indicates a guided session transition was
	// attempted from a terminal state. Always a caller bug.
	ErrInvalidStateTransition = errors.New("invalid guided session state transition")
)
