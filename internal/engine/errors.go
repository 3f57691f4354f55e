package engine

import "fmt"

// The engine distinguishes three hard-failure classes. All of them abort the
// whole operation with no ledger mutation left behind. A discrepancy between
// the two parties' claims is NOT an error: it is recorded as rejected lines
// plus missing/over-received ledger entries on an operation that succeeds.

// ValidationError reports malformed input, an unknown party or item
// reference, or insufficient stock at creation/update time.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports that the referenced transfer does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// IllegalStateError reports an operation against a record that is no longer
// pending, or an update the lifecycle does not support.
type IllegalStateError struct {
	Msg string
}

func (e *IllegalStateError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

func illegalStatef(format string, args ...any) error {
	return &IllegalStateError{Msg: fmt.Sprintf(format, args...)}
}
