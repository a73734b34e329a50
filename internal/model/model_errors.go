package model

import (
	"errors"
	"fmt"
)

// ErrNotFound signals a revocation request for a transfer id with no
// correlation record. Callers treat it as already-revoked.
var ErrNotFound = errors.New("not found")

// ProtocolError reports a non-2xx answer from the identity provider.
type ProtocolError struct {
	Call   string
	Status int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s responded with %d", e.Call, e.Status)
}

// DecodeError reports an identity provider response body that does not match
// the expected shape.
type DecodeError struct {
	Call  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot deserialize %s response: %s", e.Call, e.Cause.Error())
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// UnexpectedError wraps a failed broker administrative call.
type UnexpectedError struct {
	Op    string
	Cause error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Cause.Error())
}

func (e *UnexpectedError) Unwrap() error {
	return e.Cause
}
