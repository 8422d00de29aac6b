package rmi

import (
	"encoding/gob"
	stderrors "errors"

	"github.com/distfs/distfs/pkg/errors"
)

// gob requires every concrete type that will be stored behind an
// interface{} (our Args and Result slots) to be registered up front on both
// ends of the wire. Composite and domain types are registered here and in
// the packages that define them (path.Path registers itself); the
// predeclared scalar kinds gob already knows about.
func init() {
	gob.Register(Stub{})
	gob.Register([]Stub{})
	gob.Register([]string{})
	gob.Register(map[string]struct{}{})
}

// wireRequest is the request frame described in spec §6: a method
// descriptor plus an ordered, heterogeneous argument sequence.
type wireRequest struct {
	Method Descriptor
	Args   []interface{}
}

// wireResponse is the response frame: exactly one of Result or Failure is
// meaningful. There is no tag byte on the wire distinguishing them — Failure
// being non-nil is the tag, matching §6's "receiver uses type inspection to
// decide."
type wireResponse struct {
	Result  interface{}
	Failure *wireFailure
}

// wireFailure is the tagged-variant shape design notes §9 recommends for a
// systems language: it carries enough of a DFSError to reconstruct the
// original logical failure (kind, component, operation, message) without
// requiring the receiver to know the concrete Go error type that was thrown.
type wireFailure struct {
	Kind      string
	Component string
	Operation string
	Message   string
}

func toWireFailure(err error) *wireFailure {
	if err == nil {
		return nil
	}
	var dfsErr *errors.DFSError
	if stderrors.As(err, &dfsErr) {
		return &wireFailure{
			Kind:      string(dfsErr.Kind),
			Component: dfsErr.Component,
			Operation: dfsErr.Operation,
			Message:   dfsErr.Message,
		}
	}
	return &wireFailure{Message: err.Error()}
}

func fromWireFailure(f *wireFailure) error {
	if f == nil {
		return nil
	}
	if f.Kind == "" {
		return stderrors.New(f.Message)
	}
	return errors.New(errors.Kind(f.Kind), f.Component, f.Operation, f.Message)
}
