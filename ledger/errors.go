package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrValidation          = errors.New("ledger: validation failed")
	ErrInvariant           = errors.New("ledger: invariant violated")
	ErrConcurrencyConflict = errors.New("ledger: concurrent append conflict")
	ErrGroupNotFound       = errors.New("ledger: group not found")
	ErrEventNotFound       = errors.New("ledger: event not found")
	ErrNotMember           = errors.New("ledger: not a member of the group")
)

// ValidationError describes a rejected event. The event sequence is
// unaffected when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger: invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvariantViolation is an internal fault: the derived state contradicts
// what validated events can produce. It means the store was corrupted or
// validation was bypassed.
type InvariantViolation struct {
	GroupID uuid.UUID
	Seq     Seq
	Detail  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("ledger: invariant violated in group %s at seq %d: %s", e.GroupID, e.Seq, e.Detail)
}

func (e *InvariantViolation) Is(target error) bool { return target == ErrInvariant }

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
