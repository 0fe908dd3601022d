package usecases

import "errors"

var (
	// ErrUnauthorized aborts a run before any downstream call.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConfigNotFound means the requested prompt configuration does not exist.
	ErrConfigNotFound = errors.New("prompt configuration not found")
	// ErrValidation marks a malformed inbound message.
	ErrValidation = errors.New("invalid message")
	// ErrPersistFailed means the transcript append failed after a reply was produced.
	ErrPersistFailed = errors.New("failed to persist conversation")
	// ErrUnparsableReply means the assistant payload did not match the reply shape.
	ErrUnparsableReply = errors.New("unparsable assistant reply")
)
