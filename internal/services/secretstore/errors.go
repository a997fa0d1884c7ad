package secretstore

import (
	"errors"
	"fmt"
)

var (
	_ error = (*NotFoundError)(nil)
	_ error = (*PathError)(nil)
)

// NotFoundError is returned when a secret (strict mode only) or a version
// (either mode) does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secretstore: %s %q not found", e.Kind, e.Name)
}

// IsNotFound checks whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// PathError is returned for malformed resource paths. It is raised in both
// strict and non-strict mode; only missing secrets respect the mode switch.
type PathError struct {
	Path string
	Want string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("secretstore: malformed resource path %q (want %s)", e.Path, e.Want)
}

// IsPathError checks whether err is a *PathError.
func IsPathError(err error) bool {
	var pe *PathError
	return errors.As(err, &pe)
}
