package services

import (
	"errors"
	"strings"
)

// Error kinds. Every *Error carries exactly one of them.
var (
	ErrValidation    = errors.New("invalid input")
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool failure")
	ErrTransient     = errors.New("transient failure")
)

// Error tags a failure with its kind and where it happened.
type Error struct {
	Kind  error
	Stage string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	for _, part := range []string{e.Stage, e.Op} {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(part)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.kind().Error())
		return b.String()
	}
	b.WriteString(" (")
	b.WriteString(e.kind().Error())
	b.WriteByte(')')
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.kind()}
	}
	return []error{e.kind(), e.Err}
}

func (e *Error) kind() error {
	if e.Kind == nil {
		return ErrTransient
	}
	return e.Kind
}

// Wrap tags err with kind, stage and op. A nil kind is treated as
// ErrTransient. Wrapping an *Error that already has the same kind only
// fills in a missing stage or op.
func Wrap(kind error, stage, op string, err error) error {
	if kind == nil {
		kind = ErrTransient
	}
	if existing, ok := err.(*Error); ok && existing.kind() == kind {
		clone := *existing
		if clone.Stage == "" {
			clone.Stage = stage
		}
		if clone.Op == "" {
			clone.Op = op
		}
		return &clone
	}
	return &Error{Kind: kind, Stage: stage, Op: op, Err: err}
}

// Retryable reports whether trying the same input again may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
