// Package future provides the asynchronous substrate of the theater runtime:
// one-shot cues, teleprompters, composable event trees with rollback, and
// bounded exchanges. Everything here is single-threaded by contract — the
// owning dispatcher serializes all calls.
package future

import "errors"

// ErrCancelled is a sentinel for cancelled waits. The engine itself never
// signals it: a rolled-back commitment fires no effect at all.
var ErrCancelled = errors.New("future: cancelled")

// errUnspecified backs bloopers constructed without a cause.
var errUnspecified = errors.New("future: unspecified blooper")

// Signal is the outcome of an asynchronous completion: either a prompt
// (success value) or a blooper (failure).
type Signal struct {
	value any
	err   error
}

// Prompt builds a success signal carrying v.
func Prompt(v any) Signal {
	return Signal{value: v}
}

// Blooper builds a failure signal. A nil err is replaced with a generic cause
// so that Failed stays truthful.
func Blooper(err error) Signal {
	if err == nil {
		err = errUnspecified
	}
	return Signal{err: err}
}

// Value returns the prompt value, nil for bloopers.
func (s Signal) Value() any { return s.value }

// Err returns the blooper cause, nil for prompts.
func (s Signal) Err() error { return s.err }

// Failed reports whether the signal is a blooper.
func (s Signal) Failed() bool { return s.err != nil }

// Unpack splits the signal into its Go-native (value, error) form.
func (s Signal) Unpack() (any, error) { return s.value, s.err }
