package app

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories the scheduler reports.
// Callers branch on the kind rather than on error strings.
type ErrorKind string

const (
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindInvalidState         ErrorKind = "INVALID_STATE"
	KindNotDue               ErrorKind = "NOT_DUE"
	KindMaxExecutionsReached ErrorKind = "MAX_EXECUTIONS_REACHED"
	KindRuleEnded            ErrorKind = "RULE_ENDED"
	KindInvalidRule          ErrorKind = "INVALID_RULE"
	KindLedgerFailure        ErrorKind = "LEDGER_FAILURE"
	// KindConflict means another execution attempt claimed the rule first.
	KindConflict ErrorKind = "CONFLICT"
)

// SchedulerError is a tagged error carrying one of the kinds above plus an
// optional wrapped cause (e.g. the ledger's underlying error).
type SchedulerError struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func (e *SchedulerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *SchedulerError) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, format string, args ...interface{}) *SchedulerError {
	return &SchedulerError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...interface{}) *SchedulerError {
	return &SchedulerError{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err is (or wraps) a SchedulerError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *SchedulerError
	return errors.As(err, &se) && se.Kind == kind
}
