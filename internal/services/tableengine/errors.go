package tableengine

import (
	"errors"
	"fmt"
)

var (
	_ error = (*NotFoundError)(nil)
	_ error = (*QueryError)(nil)
)

// NotFoundError is returned by strict-mode lookups when the requested
// dataset or table does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tableengine: %s %q not found", e.Kind, e.Name)
}

// IsNotFound checks whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// QueryError is the failure configured for a statement via SeedQueryError.
// It carries the configured message verbatim and is raised only when the
// job's results are consumed.
type QueryError struct {
	Statement string
	Message   string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("tableengine: query failed: %s", e.Message)
}

// IsQueryError checks whether err is a *QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
