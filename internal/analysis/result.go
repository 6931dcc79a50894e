package analysis

import "time"

// Result is the success/failure envelope for one agent call.
//
// A successful result carries the payload and the attempt that produced it. A failed result
// carries the last error message and the number of attempts made.
type Result[T any] struct {
	Success   bool      `json:"success"`
	Payload   *T        `json:"payload,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Succeeded builds a successful result.
func Succeeded[T any](payload T, attempt int, at time.Time) *Result[T] {
	return &Result[T]{
		Success:   true,
		Payload:   &payload,
		Attempt:   attempt,
		Timestamp: at,
	}
}

// Failed builds a failed result from the last error observed.
func Failed[T any](err error, attempts int, at time.Time) *Result[T] {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Result[T]{
		Success:   false,
		Error:     msg,
		Attempts:  attempts,
		Timestamp: at,
	}
}

// Succeeded reports whether r is present and successful. It is safe on a nil receiver.
func (r *Result[T]) Succeeded() bool {
	return r != nil && r.Success
}

// Attempted reports whether the agent was invoked at all.
func (r *Result[T]) Attempted() bool {
	return r != nil
}
