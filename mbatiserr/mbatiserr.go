// Package mbatiserr defines the tagged error kinds this module raises, so
// callers can branch on failure category (errors.Is) instead of parsing
// message text. Grounded on org.apache.ibatis.exceptions' per-layer
// exception hierarchy (BindingException, ExecutorException,
// TypeException, ...), flattened into one Kind enum since Go error
// wrapping via fmt.Errorf("%w", ...) already gives each call site its own
// message without needing a distinct type per layer.
package mbatiserr

import (
	"errors"
	"fmt"
)

// Kind categorizes a mybatis-3 error by the subsystem that raised it.
type Kind int

const (
	Unknown Kind = iota
	Configuration
	Binding
	Executor
	ResultMap
	Driver
	Transaction
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Binding:
		return "binding"
	case Executor:
		return "executor"
	case ResultMap:
		return "resultmap"
	case Driver:
		return "driver"
	case Transaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged error. errors.Is compares on Kind alone so
// `errors.Is(err, mbatiserr.New(mbatiserr.Binding, ""))` matches any
// binding error regardless of message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("mybatis-3: %s error: %v", e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("mybatis-3: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("mybatis-3: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Is reports whether err is (or wraps) a mbatiserr.Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
