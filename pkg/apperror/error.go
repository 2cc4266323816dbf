package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced to tool callers.
type Kind string

const (
	KindInvalidInput               Kind = "invalid_input"
	KindNotFound                   Kind = "not_found"
	KindAlreadyAnswered            Kind = "already_answered"
	KindTimeout                    Kind = "timeout"
	KindEvaluatorContractViolation Kind = "evaluator_contract_violation"
)

// Sentinels usable with errors.Is.
var (
	ErrInvalidInput               = &Error{Kind: KindInvalidInput}
	ErrNotFound                   = &Error{Kind: KindNotFound}
	ErrAlreadyAnswered            = &Error{Kind: KindAlreadyAnswered}
	ErrTimeout                    = &Error{Kind: KindTimeout}
	ErrEvaluatorContractViolation = &Error{Kind: KindEvaluatorContractViolation}
)

type Error struct {
	Kind Kind
	Op   string
	ID   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.ID != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.ID)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, op, id, msg string) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Msg: msg}
}

func Wrap(kind Kind, op, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: err}
}

func InvalidInput(op, id, msg string) *Error {
	return New(KindInvalidInput, op, id, msg)
}

func NotFound(op, id, msg string) *Error {
	return New(KindNotFound, op, id, msg)
}

func AlreadyAnswered(op, id string) *Error {
	return New(KindAlreadyAnswered, op, id, "question already answered")
}

func ContractViolation(op, id, msg string) *Error {
	return New(KindEvaluatorContractViolation, op, id, msg)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
