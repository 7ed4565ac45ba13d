package errcode

import "errors"

// Code is a stable error identifier surfaced in logs, alerts and API responses.
// It is a comparable string newtype and implements error.
type Code string

func (c Code) Error() string { return string(c) }

const (
	OK Code = "ok"

	CommandTimeout   Code = "command_timeout"
	CommandFailed    Code = "command_failed"
	MetricOutOfRange Code = "metric_out_of_range"

	EngineClosed  Code = "engine_closed"
	InvalidParams Code = "invalid_params"
	InvalidConfig Code = "invalid_config"
	Unavailable   Code = "unavailable"

	Error Code = "error" // generic fallback
)

// E keeps an operation, a message and a cause next to a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is reports a match against a bare Code so errors.Is(err, errcode.CommandFailed) works.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New builds an *E.
func New(c Code, op, msg string) *E {
	return &E{C: c, Op: op, Msg: msg}
}

// Wrap builds an *E carrying err as its cause.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}
