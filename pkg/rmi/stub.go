package rmi

import (
	"encoding/gob"
	"net"
	"os"
	"reflect"

	"github.com/distfs/distfs/pkg/errors"
)

// Stub is the client-side RMI façade of spec §4.4/C4: the address of the
// skeleton it targets and the name of the interface it satisfies. Stub is a
// plain, exported-field value type — comparable with ==, usable as a map
// key, and trivially gob-serializable, satisfying "stubs are serializable
// values... transmissible across the wire."
//
// Design Notes §9 describes the client side as a dynamic proxy implementing
// the remote interface. Go has no dynamic proxies; the idiomatic
// translation is a hand-written typed façade per interface (see
// pkg/nclient.Client) that wraps a Stub and routes every method through
// Invoke.
type Stub struct {
	InterfaceName string
	Addr          string
}

func init() {
	gob.Register(Stub{})
}

// NewStub snapshots skeleton's current address. Fails with IllegalState if
// the skeleton has never been started and has no preassigned address; with
// InvalidArgument if ifaceType is not a remote interface; with UnknownHost
// if the address is a wildcard and no local host address is discoverable.
func NewStub(ifaceType reflect.Type, skeleton *Skeleton) (Stub, error) {
	if ifaceType == nil || skeleton == nil {
		return Stub{}, errors.InvalidArgument("rmi.stub", "new", "interface and skeleton must not be nil")
	}
	if !IsRemoteInterface(ifaceType) {
		return Stub{}, errors.InvalidArgument("rmi.stub", "new", ifaceType.String()+" is not a remote interface")
	}

	addr := skeleton.Address()
	if addr == "" {
		return Stub{}, errors.IllegalState("rmi.stub", "new", "skeleton has never been started and has no preassigned address")
	}

	resolved, err := resolveWildcard(addr)
	if err != nil {
		return Stub{}, err
	}
	return Stub{InterfaceName: ifaceType.String(), Addr: resolved}, nil
}

// NewStubWithHost behaves like NewStub but overrides the hostname, keeping
// the skeleton's port.
func NewStubWithHost(ifaceType reflect.Type, skeleton *Skeleton, hostname string) (Stub, error) {
	if ifaceType == nil || skeleton == nil {
		return Stub{}, errors.InvalidArgument("rmi.stub", "new", "interface and skeleton must not be nil")
	}
	if !IsRemoteInterface(ifaceType) {
		return Stub{}, errors.InvalidArgument("rmi.stub", "new", ifaceType.String()+" is not a remote interface")
	}

	addr := skeleton.Address()
	if addr == "" {
		return Stub{}, errors.IllegalState("rmi.stub", "new", "skeleton has never been started and has no preassigned address")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Stub{}, errors.Wrap(errors.KindInvalidArgument, "rmi.stub", "new", err)
	}
	return Stub{InterfaceName: ifaceType.String(), Addr: net.JoinHostPort(hostname, port)}, nil
}

// NewStubFromAddress builds a stub directly against addr, bypassing a local
// skeleton — the bootstrap path external clients use to reach a naming
// service whose address they already know.
func NewStubFromAddress(ifaceType reflect.Type, addr string) (Stub, error) {
	if ifaceType == nil || addr == "" {
		return Stub{}, errors.InvalidArgument("rmi.stub", "new", "interface and address must not be empty")
	}
	if !IsRemoteInterface(ifaceType) {
		return Stub{}, errors.InvalidArgument("rmi.stub", "new", ifaceType.String()+" is not a remote interface")
	}
	return Stub{InterfaceName: ifaceType.String(), Addr: addr}, nil
}

func resolveWildcard(addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", errors.Wrap(errors.KindInvalidArgument, "rmi.stub", "new", err)
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsUnspecified() {
		return addr, nil
	}

	local, err := discoverLocalHost()
	if err != nil {
		return "", errors.UnknownHost("rmi.stub", "new", "no local host address discoverable: "+err.Error())
	}
	return net.JoinHostPort(local, port), nil
}

// discoverLocalHost resolves this host's address the way java.net
// .InetAddress.getLocalHost() does — by hostname lookup — rather than
// defaulting to the loopback address. A loopback default would make a
// wildcard-bound skeleton produce stubs that work in single-process tests
// and silently fail for any real remote peer; this spec calls for failing
// loudly (UnknownHost) instead. See DESIGN.md for the open-question
// resolution.
func discoverLocalHost() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return "", errors.InvalidArgument("rmi.stub", "discoverLocalHost", "no address for hostname "+hostname)
	}
	return addrs[0], nil
}

// Equals reports stub equality: same target interface and same address.
func (s Stub) Equals(o Stub) bool {
	return s.InterfaceName == o.InterfaceName && s.Addr == o.Addr
}

func (s Stub) String() string {
	return s.InterfaceName + "@" + s.Addr
}

// Invoke opens a fresh TCP connection to the stub's target, sends
// (d, args), and returns the decoded result or re-raises the original cause
// of a remote failure. One connection per call — no pooling, no
// multiplexing, no ordering guarantee between concurrent calls on the same
// Stub, and no built-in timeout: per spec §5, callers that need one must
// enforce it externally (see pkg/nclient).
func (s Stub) Invoke(d Descriptor, args []interface{}) (interface{}, error) {
	conn, err := net.Dial("tcp", s.Addr)
	if err != nil {
		return nil, errors.RMI("rmi.stub", d.Name, err)
	}
	defer conn.Close()

	// The initiator writes its stream header first: construct the encoder
	// before the decoder, matching the acceptor's own output-then-input
	// order on the other end (spec §4.3/§6).
	enc := gob.NewEncoder(conn)
	dec := gob.NewDecoder(conn)

	if err := enc.Encode(wireRequest{Method: d, Args: args}); err != nil {
		return nil, errors.RMI("rmi.stub", d.Name, err)
	}

	var resp wireResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, errors.RMI("rmi.stub", d.Name, err)
	}

	if resp.Failure != nil {
		return nil, fromWireFailure(resp.Failure)
	}
	return resp.Result, nil
}
