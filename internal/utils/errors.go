package utils

import "fmt"

// AppError carries the failing operation and a short description alongside
// the underlying cause, keeping the chain intact for errors.Is/As.
type AppError struct {
	Op  string
	Msg string
	Err error
}

// NewAppError wraps err with operation context.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }
