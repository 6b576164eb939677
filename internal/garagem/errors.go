package garagem

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrNotOwner              = errors.New("record belongs to another user")
	ErrNotLoggedIn           = errors.New("not logged in")
	ErrInvalidKindTransition = errors.New("completed maintenance cannot go back to scheduled")
	ErrEmailTaken            = errors.New("email already registered")
)

// ValidationError reports a bad input value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
