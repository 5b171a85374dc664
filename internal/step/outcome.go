package step

import (
	"errors"
	"fmt"
)

// Op names a remote step operation.
type Op string

const (
	OpFetchCurrent  Op = "fetch-current"
	OpFetchNext     Op = "fetch-next"
	OpFetchPrevious Op = "fetch-previous"
	OpRestart       Op = "fetch-restart"
)

// Origin tells where a fetch failure came from.
type Origin string

const (
	// TransportFailure means no usable response arrived.
	TransportFailure Origin = "transport"
	// ServerError means the server answered with an explicit error result.
	ServerError Origin = "server"
)

// FetchFailed is the single failure outcome of a remote step operation.
type FetchFailed struct {
	Op      Op
	Origin  Origin
	Message string
	Err     error
}

func (e *FetchFailed) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.Op, e.Origin, e.Message)
}

func (e *FetchFailed) Unwrap() error {
	return e.Err
}

// NewTransportFailure builds a FetchFailed for a request that got no usable response.
func NewTransportFailure(op Op, err error) *FetchFailed {
	msg := "no response"
	if err != nil {
		msg = err.Error()
	}
	return &FetchFailed{Op: op, Origin: TransportFailure, Message: msg, Err: err}
}

// NewServerError builds a FetchFailed for an explicit error result.
func NewServerError(op Op, message string) *FetchFailed {
	return &FetchFailed{Op: op, Origin: ServerError, Message: message}
}

// AsFetchFailed reports whether err is a FetchFailed and returns it.
func AsFetchFailed(err error) (*FetchFailed, bool) {
	var ff *FetchFailed
	if errors.As(err, &ff) {
		return ff, true
	}
	return nil, false
}

// Kind discriminates an Outcome.
type Kind int

const (
	// Failed is the zero Kind so an uninitialised Outcome is never mistaken for success.
	Failed Kind = iota
	Succeeded
)

// Outcome is the tagged result of a remote step operation.
type Outcome struct {
	Kind    Kind
	State   State
	Failure *FetchFailed
}

// Success wraps a fetched step.
func Success(s State) Outcome {
	return Outcome{Kind: Succeeded, State: s}
}

// Failure wraps a fetch failure.
func Failure(ff *FetchFailed) Outcome {
	return Outcome{Kind: Failed, Failure: ff}
}

// Err returns the failure of a failed outcome, or nil.
// A failed outcome without a recorded failure reports an unknown server error.
func (o Outcome) Err() *FetchFailed {
	if o.Kind == Succeeded {
		return nil
	}
	if o.Failure == nil {
		return &FetchFailed{Origin: ServerError, Message: "unknown failure"}
	}
	return o.Failure
}
