package objectstore

import (
	"errors"
	"fmt"
)

// Make sure *NotFoundError satisfies the error interface.
var _ error = (*NotFoundError)(nil)

// NotFoundError is returned by strict-mode lookups when the requested
// bucket does not exist, and by DeleteBucket in any mode.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("objectstore: %s %q not found", e.Kind, e.Name)
}

// IsNotFound checks whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
