// Package ayerr defines the error taxonomy shared across the analyzer and
// solver: every error surfaced to a CLI caller is one of five kinds, so
// callers can errors.As their way to the right exit behavior instead of
// string-matching messages.
package ayerr

import "fmt"

// Kind identifies which of the five error categories an error belongs to.
type Kind int

const (
	// Spec: the season YAML failed to parse or reference a known name.
	Spec Kind = iota
	// Invariant: an internal consistency check failed (a bug, not bad input).
	Invariant
	// Cache: the enumeration cache file is missing, truncated or stale.
	Cache
	// Simulation: a solver run failed mid-flight (strategy error, RNG misuse).
	Simulation
	// IO: a filesystem or encoding operation failed.
	IO
)

func (k Kind) String() string {
	switch k {
	case Spec:
		return "spec"
	case Invariant:
		return "invariant"
	case Cache:
		return "cache"
	case Simulation:
		return "simulation"
	case IO:
		return "io"
	}
	return "unknown"
}

// Error wraps an underlying error with a Kind and a bit of context, the way
// sdk/solver/config.go's Validate chains wrap a field name onto a plain
// error rather than inventing a new type per field.
type Error struct {
	Kind    Kind
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a Kind error with the given context string.
func New(kind Kind, context string, err error) *Error {
	return &Error{Kind: kind, Context: context, Err: err}
}

func Specf(context string, format string, args ...any) *Error {
	return New(Spec, context, fmt.Errorf(format, args...))
}

func Invariantf(context string, format string, args ...any) *Error {
	return New(Invariant, context, fmt.Errorf(format, args...))
}

func Cachef(context string, format string, args ...any) *Error {
	return New(Cache, context, fmt.Errorf(format, args...))
}

func Simulationf(context string, format string, args ...any) *Error {
	return New(Simulation, context, fmt.Errorf(format, args...))
}

func IOf(context string, format string, args ...any) *Error {
	return New(IO, context, fmt.Errorf(format, args...))
}

// Is reports whether err (or something it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == k
}
