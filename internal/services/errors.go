package services

import "errors"

// Error taxonomy shared by all task operations. Handlers map these onto
// HTTP status codes; services never panic across the boundary.
var (
	ErrUnauthorized = errors.New("user not authenticated")
	ErrForbidden    = errors.New("user lacks permission for this operation")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("task not found")

	// Policy conflicts: recoverable, user-facing conditions.
	ErrCriticalLimit   = errors.New("ya tienes una tarea crítica activa")
	ErrNoActiveBlocker = errors.New("task has no active blocker")

	// Unexpected failures inside the transactional write.
	ErrTransitionFailed = errors.New("task transition failed")
	ErrCompletionFailed = errors.New("task completion failed")
)

// invalidInput wraps ErrInvalidInput with a user-facing detail message.
func invalidInput(msg string) error {
	return &opError{kind: ErrInvalidInput, msg: msg}
}

func forbidden(msg string) error {
	return &opError{kind: ErrForbidden, msg: msg}
}

type opError struct {
	kind error
	msg  string
}

func (e *opError) Error() string { return e.msg }
func (e *opError) Unwrap() error { return e.kind }
