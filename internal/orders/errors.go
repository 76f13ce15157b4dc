package orders

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrForbidden         = errors.New("actor is not allowed to perform this action")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoteRequired      = errors.New("a note is required for this transition")
)
