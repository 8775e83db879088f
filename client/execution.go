package client

import (
	"time"

	"github.com/cnosuke/httpget/fault"
	"github.com/cnosuke/httpget/redirect"
	"github.com/cnosuke/httpget/request"
	"github.com/cnosuke/httpget/transport"
	"github.com/cnosuke/httpget/types"
)

// State is the position of an execution in the request state machine.
type State int

const (
	// Fetching means an exchange with the chain's current URL is due.
	Fetching State = iota
	// EvaluatingRedirect means a response arrived and the redirect
	// decision is pending.
	EvaluatingRedirect
	// Decoding means the terminal response body is being decoded.
	Decoding
	// Done is the terminal success state.
	Done
	// Failed is the terminal failure state.
	Failed
)

var stateNames = []string{
	"Fetching",
	"EvaluatingRedirect",
	"Decoding",
	"Done",
	"Failed",
}

// String returns the name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// An Execution is the mutable state of one logical request as it moves
// through the state machine. Handlers receive it on every event and must
// not retain it after returning.
type Execution struct {
	// Descriptor is the request as submitted by the caller.
	Descriptor *request.Descriptor
	// Request is the descriptor used for the current hop. It differs
	// from Descriptor after a redirect changed the method or headers.
	Request *request.Descriptor
	// Chain is the redirect chain state.
	Chain *redirect.Chain
	// State is the current state.
	State State
	// Raw is the undecoded response of the latest hop.
	Raw *transport.RawResponse
	// Result is set once the execution is Done.
	Result *types.Result
	// Err is set once the execution is Failed.
	Err *fault.Error

	// Start is when the execution started.
	Start time.Time
	// End is when the execution reached a terminal state.
	End time.Time
}

// Method returns the method of the request as submitted.
func (e *Execution) Method() string {
	return e.Descriptor.Method()
}

// Duration returns the time spent so far, or the total once the
// execution has ended.
func (e *Execution) Duration() time.Duration {
	if e.End.IsZero() {
		return time.Since(e.Start)
	}
	return e.End.Sub(e.Start)
}
