package server

import "errors"

// Sentinel errors for rejected session operations. Handlers translate
// these into error events; anything else is reported generically.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidRoom        = errors.New("invalid room")
	ErrInvalidReplyTarget = errors.New("invalid reply target")
	ErrEmptyContent       = errors.New("empty content")
	ErrSessionClosed      = errors.New("session closed")
)

// clientFault reports whether the error is a caller mistake rather than a
// server-side failure.
func clientFault(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidRoom) ||
		errors.Is(err, ErrInvalidReplyTarget) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrSessionClosed)
}

// reasonForError renders an error into the reason string sent to clients.
// Server-side failures are reported generically.
func reasonForError(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidRoom):
		return "invalid room"
	case errors.Is(err, ErrInvalidReplyTarget):
		return "invalid reply target"
	case errors.Is(err, ErrEmptyContent):
		return "empty content"
	case errors.Is(err, ErrSessionClosed):
		return "session closed"
	default:
		return "temporary failure"
	}
}
