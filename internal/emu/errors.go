package emu

import (
	"errors"
	"fmt"
)

var _ error = (*UsageError)(nil)

// UsageError marks a programming error in activation handling: activating
// factories that are already active, or deactivating a handle twice. It is
// meant to fail a test fast, not to be caught and branched on.
type UsageError struct {
	Op     string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("emu: %s: %s", e.Op, e.Reason)
}

// IsUsageError checks whether err is a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
