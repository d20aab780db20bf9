package reconcile

import "errors"

var (
	// ErrUnauthenticated means no user is attached to the session; nothing changed.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidAmount means the stake is below the minimum; no request was made.
	ErrInvalidAmount = errors.New("invalid investment amount")
	// ErrRequestFailed wraps any transport failure or non-2xx backend response.
	ErrRequestFailed = errors.New("request failed")

	ErrInvalidVote   = errors.New("vote must be up or down")
	ErrUnknownTarget = errors.New("target not found in view")
	// ErrAborted means the command was dropped before it was sent, because an
	// earlier command on the same item failed or the view was refreshed.
	ErrAborted = errors.New("superseded before sending")
)
