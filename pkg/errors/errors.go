// Package errors provides the structured error taxonomy shared by every
// component of distfs: the RMI fabric, the naming core, and the storage
// surface all raise and test against the same small set of kinds instead of
// ad hoc error strings.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies which of the spec's error categories a DFSError belongs
// to. Kind is deliberately coarse — components branch on it, not on
// component-specific error codes.
type Kind string

const (
	// KindInvalidArgument is a local precondition failure: a null/empty
	// argument, a malformed path, a non-remote interface. Raised before
	// any I/O happens.
	KindInvalidArgument Kind = "invalid_argument"

	// KindNotFound indicates a named path or target is absent from the
	// namespace or from a remote interface's method table.
	KindNotFound Kind = "not_found"

	// KindIllegalState indicates a lifecycle violation: restarting a
	// stopped skeleton, double-registering a binding, starting an
	// already-stopped naming core.
	KindIllegalState Kind = "illegal_state"

	// KindRMI wraps any failure of the wire layer itself: dial, encode,
	// decode, a dispatch miss reported by the skeleton. Never used for an
	// application-level failure the remote method raised on purpose.
	KindRMI Kind = "rmi_exception"

	// KindUnknownHost indicates no local host address could be resolved
	// when a stub was created against a wildcard skeleton address.
	KindUnknownHost Kind = "unknown_host"

	// KindRemote marks an error built by Remote around another error that
	// a remote method raised. pkg/rmi does not use it: its stub rebuilds a
	// remote failure with the failure's own kind instead.
	KindRemote Kind = "remote"
)

// DFSError is the concrete error type every package in this module
// constructs. Component and Operation are included for structured logging;
// Cause is preserved for errors.Unwrap / errors.Is / errors.As.
type DFSError struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
}

func (e *DFSError) Error() string {
	if e.Component != "" && e.Operation != "" {
		return fmt.Sprintf("%s: %s.%s: %s", e.Kind, e.Component, e.Operation, e.Message)
	}
	if e.Component != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Component, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DFSError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, errors.New(kind, ...)) match on Kind alone, the way
// sentinel comparisons usually work, without requiring identical messages.
func (e *DFSError) Is(target error) bool {
	other, ok := target.(*DFSError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New builds a DFSError of the given kind with no wrapped cause.
func New(kind Kind, component, operation, message string) *DFSError {
	return &DFSError{Kind: kind, Component: component, Operation: operation, Message: message}
}

// Wrap builds a DFSError of the given kind around an existing cause,
// preserving it for Unwrap.
func Wrap(kind Kind, component, operation string, cause error) *DFSError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &DFSError{Kind: kind, Component: component, Operation: operation, Message: msg, Cause: cause}
}

func InvalidArgument(component, operation, message string) *DFSError {
	return New(KindInvalidArgument, component, operation, message)
}

func NotFound(component, operation, message string) *DFSError {
	return New(KindNotFound, component, operation, message)
}

func IllegalState(component, operation, message string) *DFSError {
	return New(KindIllegalState, component, operation, message)
}

func RMI(component, operation string, cause error) *DFSError {
	return Wrap(KindRMI, component, operation, cause)
}

func UnknownHost(component, operation, message string) *DFSError {
	return New(KindUnknownHost, component, operation, message)
}

// Remote wraps an error a remote method raised in a KindRemote DFSError
// whose Cause is that error, so callers can unwrap to it with Cause or
// errors.As. pkg/rmi's stub does not call Remote.
func Remote(cause error) *DFSError {
	return &DFSError{Kind: KindRemote, Message: cause.Error(), Cause: cause}
}

// Is reports whether err is a DFSError of the given kind.
func Is(err error, kind Kind) bool {
	var dfsErr *DFSError
	if !errors.As(err, &dfsErr) {
		return false
	}
	return dfsErr.Kind == kind
}

// Cause unwraps a DFSError (if err is one) down to the original cause it
// carried, or returns err unchanged otherwise (including a DFSError with no
// Cause).
func Cause(err error) error {
	var dfsErr *DFSError
	if errors.As(err, &dfsErr) && dfsErr.Cause != nil {
		return dfsErr.Cause
	}
	return err
}
