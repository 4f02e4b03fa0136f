package engine

import (
	"errors"
	"fmt"

	"simpleboard/internal/model"
)

var (
	ErrInvalidRequest         = errors.New("invalid move request")
	ErrConfirmationFailed     = errors.New("move confirmation failed")
	ErrConcurrentMoveRejected = errors.New("another move is pending on this board")
	ErrMoveQueueFull          = errors.New("timed out waiting for a slot in the move queue")
	ErrBoardClosed            = errors.New("board is closed")
	ErrBoardNotFound          = errors.New("board not found")
	ErrBoardExists            = errors.New("board already exists")
)

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ConfirmationError reports a move that was rolled back because its
// confirmer declined, failed or panicked. Cause is nil for a plain decline.
type ConfirmationError struct {
	Request model.MoveRequest
	Cause   error
}

func (e *ConfirmationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", ErrConfirmationFailed, e.Request, e.Cause)
	}
	return fmt.Sprintf("%s %s: declined", ErrConfirmationFailed, e.Request)
}

func (e *ConfirmationError) Unwrap() error {
	return e.Cause
}

func (e *ConfirmationError) Is(target error) bool {
	return target == ErrConfirmationFailed
}
