package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a rejected payload: a missing required field, an
// unresolved node reference, or an unknown enum value.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
