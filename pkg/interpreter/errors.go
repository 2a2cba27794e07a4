package interpreter

import (
	"errors"
	"fmt"

	"knack/interpreter-go/pkg/runtime"
)

// ErrorKind discriminates the failure classes the evaluator can produce.
type ErrorKind string

const (
	ErrUnboundVariable     ErrorKind = "UnboundVariableError"
	ErrArityMismatch       ErrorKind = "ArityMismatchError"
	ErrTypeMismatch        ErrorKind = "TypeMismatchError"
	ErrNotCallable         ErrorKind = "NotCallableError"
	ErrSubexpressionFailed ErrorKind = "SubexpressionFailedError"
)

// EvalError is the error type returned by evaluation. Kind identifies the
// failure class; Cause carries the inner error when one evaluation step
// failed because a nested one did.
type EvalError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *EvalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EvalError) Unwrap() error {
	return e.Cause
}

// HasKind reports whether err, or any error it wraps, is an EvalError of the
// given kind. An assignment whose right-hand side failed reports
// ErrSubexpressionFailed and still answers true for the inner kind.
func HasKind(err error, kind ErrorKind) bool {
	for err != nil {
		var evalErr *EvalError
		if !errors.As(err, &evalErr) {
			return false
		}
		if evalErr.Kind == kind {
			return true
		}
		err = evalErr.Unwrap()
	}
	return false
}

func newUnboundVariableError(name string) error {
	return &EvalError{Kind: ErrUnboundVariable, Message: fmt.Sprintf("Undefined variable '%s'", name)}
}

func newBlockArityError(want, got int) error {
	return &EvalError{Kind: ErrArityMismatch, Message: fmt.Sprintf("block expects %d arguments, got %d", want, got)}
}

func newCommandArityError(name string, want, got int) error {
	return &EvalError{Kind: ErrArityMismatch, Message: fmt.Sprintf("command '%s' expects %d arguments, got %d", name, want, got)}
}

func newTypeMismatchError(name string, position int, want, got runtime.Kind) error {
	return &EvalError{
		Kind:    ErrTypeMismatch,
		Message: fmt.Sprintf("command '%s' argument %d must be %s, got %s", name, position, want, got),
	}
}

func newNotCallableError(kind runtime.Kind) error {
	return &EvalError{Kind: ErrNotCallable, Message: fmt.Sprintf("value of kind %s is not callable", kind)}
}

func newSetFailedError(name string, cause error) error {
	return &EvalError{
		Kind:    ErrSubexpressionFailed,
		Message: fmt.Sprintf("assignment to '%s' failed", name),
		Cause:   cause,
	}
}
