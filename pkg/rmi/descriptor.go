// Package rmi implements the transport-agnostic core of the RMI fabric: the
// method descriptor that is the wire identity of a remote method (C2), the
// skeleton that dispatches invocations to a local implementation (C3), and
// the stub that forwards calls to a skeleton over TCP (C4).
package rmi

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/distfs/distfs/pkg/errors"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Descriptor is the serializable, language-neutral identity of a remote
// method: its name, return type name, parameter type names, and declared
// failure type names. Two descriptors are equal iff all four fields are
// equal as ordered sequences of strings.
type Descriptor struct {
	Name           string
	ReturnType     string
	ParameterTypes []string
	FailureTypes   []string
}

// Equals reports whether d and o name the same method.
func (d Descriptor) Equals(o Descriptor) bool {
	if d.Name != o.Name || d.ReturnType != o.ReturnType {
		return false
	}
	return stringsEqual(d.ParameterTypes, o.ParameterTypes) && stringsEqual(d.FailureTypes, o.FailureTypes)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s) %s throws %s", d.Name, strings.Join(d.ParameterTypes, ","), d.ReturnType, strings.Join(d.FailureTypes, ","))
}

// BuildDescriptor extracts a Descriptor from a reflective method handle on a
// remote interface. m.Type must have no receiver parameter (the shape
// returned by reflect.Type.Method on an interface type) and its final return
// value must be of type error — this is how a remote interface declares the
// RMIException-equivalent failure mode every method must carry.
func BuildDescriptor(m reflect.Method) (Descriptor, error) {
	mt := m.Type
	numOut := mt.NumOut()
	if numOut == 0 || mt.Out(numOut-1) != errorType {
		return Descriptor{}, errors.InvalidArgument("rmi", "buildDescriptor", m.Name+" does not declare an error return")
	}

	returnType := "void"
	if numOut > 1 {
		returnType = mt.Out(0).String()
	}

	params := make([]string, mt.NumIn())
	for i := 0; i < mt.NumIn(); i++ {
		params[i] = mt.In(i).String()
	}

	return Descriptor{
		Name:           m.Name,
		ReturnType:     returnType,
		ParameterTypes: params,
		FailureTypes:   []string{errorType.String()},
	}, nil
}

// IsRemoteInterface reports whether t is an interface type whose every
// method declares an error return — the remote-interface requirement
// skeleton construction enforces.
func IsRemoteInterface(t reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Interface {
		return false
	}
	for i := 0; i < t.NumMethod(); i++ {
		if _, err := BuildDescriptor(t.Method(i)); err != nil {
			return false
		}
	}
	return true
}

// FindIn returns the first method on ifaceType whose descriptor equals d, or
// ok=false if none matches — the abstract form of a dispatch-table lookup.
func FindIn(ifaceType reflect.Type, d Descriptor) (reflect.Method, bool) {
	for i := 0; i < ifaceType.NumMethod(); i++ {
		m := ifaceType.Method(i)
		built, err := BuildDescriptor(m)
		if err != nil {
			continue
		}
		if built.Equals(d) {
			return m, true
		}
	}
	return reflect.Method{}, false
}

// Describe builds the Descriptor for the named method of ifaceType. Used by
// stub callers (pkg/nclient, pkg/naming) to build the wire identity of the
// call they are about to make without holding a live reflect.Method.
func Describe(ifaceType reflect.Type, methodName string) (Descriptor, error) {
	m, ok := ifaceType.MethodByName(methodName)
	if !ok {
		return Descriptor{}, errors.InvalidArgument("rmi", "describe", "no such method: "+methodName)
	}
	return BuildDescriptor(m)
}
