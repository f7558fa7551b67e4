// Package services provides business logic and orchestration services.
package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCategory   = errors.New("unknown category")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrDuplicateBudget   = errors.New("budget already exists for this category and month")
)

// ValidationError marks input the caller can fix. HTTP maps it to 422.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// IsValidation reports whether err is caused by bad input.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
