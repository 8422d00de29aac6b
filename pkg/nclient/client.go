// Package nclient is the resilient naming client a storage server or an
// end-user process uses to reach a naming core that may not be up yet, or
// may drop a connection mid-session. Spec §5 is explicit that the RMI
// protocol itself has no timeout or retry — "callers that need one must
// enforce it externally." This package is that external caller: it wraps
// the naming.Service and naming.Registration stubs with pkg/retry's
// backoff policy and the connection-state machine grounded on the
// teacher's pkg/recovery/connection.go (Disconnected, Connecting,
// Connected, Failed — the teacher's extra Reconnecting state collapses
// into Connecting here, since a stub has no persistent connection to
// distinguish an initial dial from a reconnect).
package nclient

import (
	"reflect"
	"sync"
	"time"

	"github.com/distfs/distfs/internal/circuit"
	"github.com/distfs/distfs/pkg/errors"
	"github.com/distfs/distfs/pkg/logging"
	"github.com/distfs/distfs/pkg/path"
	"github.com/distfs/distfs/pkg/retry"
	"github.com/distfs/distfs/pkg/rmi"
)

// State is the client's view of its reachability to the naming core.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	registrationIface = reflect.TypeOf((*registration)(nil)).Elem()
	serviceIface      = reflect.TypeOf((*service)(nil)).Elem()
)

// registration and service mirror pkg/naming's remote interfaces without
// importing that package. The method sets must stay identical to
// naming.Registration and naming.Service, since the skeleton resolves each
// call by its method descriptor.
type registration interface {
	Register(storageStub rmi.Stub, commandStub rmi.Stub, paths []path.Path) ([]path.Path, error)
}

type service interface {
	IsDirectory(p path.Path) (bool, error)
	List(dir path.Path) ([]string, error)
	CreateFile(p path.Path) (bool, error)
	CreateDirectory(p path.Path) (bool, error)
	Delete(p path.Path) error
	GetStorage(p path.Path) (rmi.Stub, error)
}

// Client is a resilient façade over a naming core's two stubs.
type Client struct {
	registrationStub rmi.Stub
	serviceStub      rmi.Stub
	retryer          *retry.Retryer
	breaker          *circuit.CircuitBreaker
	logger           *logging.Logger

	mu        sync.Mutex
	state     State
	lastError error
}

// New builds a Client against the naming core listening at addr, using
// retryConfig for every call (DefaultConfig if the zero value is passed). A
// circuit breaker sits in front of the retry policy: once at least five
// calls have been made within the current 30-second window and at least
// half of them failed, further calls fail immediately for ten seconds
// rather than paying out a full retry budget against a core that is
// clearly down.
func New(addr string, retryConfig retry.Config) (*Client, error) {
	regStub, err := rmi.NewStubFromAddress(registrationIface, addr)
	if err != nil {
		return nil, err
	}
	svcStub, err := rmi.NewStubFromAddress(serviceIface, addr)
	if err != nil {
		return nil, err
	}
	breakerConfig := circuit.Config{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts circuit.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
	return &Client{
		registrationStub: regStub,
		serviceStub:      svcStub,
		retryer:          retry.New(retryConfig),
		breaker:          circuit.NewCircuitBreaker(addr, breakerConfig),
		logger:           logging.NewDefault().With("component", "nclient"),
		state:            StateDisconnected,
	}, nil
}

// State reports the client's current connectivity state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError reports the most recent call failure, or nil.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Client) transition(s State, err error) {
	c.mu.Lock()
	c.state = s
	c.lastError = err
	c.mu.Unlock()
}

// invoke runs a single stub call under the retry policy, tracking state
// transitions around it: Connecting while attempts are in flight, Connected
// on success or on an application-level error from the core, Failed once the
// retry budget is exhausted on wire-layer failures or the breaker rejects
// the call.
func (c *Client) invoke(stub rmi.Stub, d rmi.Descriptor, args []interface{}) (interface{}, error) {
	c.transition(StateConnecting, nil)

	var result interface{}
	err := c.breaker.Execute(func() error {
		return c.retryer.Do(func() error {
			r, callErr := stub.Invoke(d, args)
			if callErr != nil {
				return callErr
			}
			result = r
			return nil
		})
	})

	if err != nil {
		// A wire-layer failure or a rejecting breaker means the core was not
		// reached; any other error is a rejection answered by a live core.
		state := StateConnected
		if err == circuit.ErrOpenState || err == circuit.ErrTooManyRequests || errors.Is(err, errors.KindRMI) {
			state = StateFailed
		}
		c.transition(state, err)
		c.logger.Warn("naming call failed", "method", d.Name, "error", err.Error())
		return nil, err
	}
	c.transition(StateConnected, nil)
	return result, nil
}

// Register joins the namespace, retrying the call while the naming core is
// unreachable.
func (c *Client) Register(storageStub, commandStub rmi.Stub, paths []path.Path) ([]path.Path, error) {
	d, err := rmi.Describe(registrationIface, "Register")
	if err != nil {
		return nil, err
	}
	result, err := c.invoke(c.registrationStub, d, []interface{}{storageStub, commandStub, paths})
	if err != nil {
		return nil, err
	}
	toDelete, _ := result.([]path.Path)
	return toDelete, nil
}

func (c *Client) IsDirectory(p path.Path) (bool, error) {
	d, err := rmi.Describe(serviceIface, "IsDirectory")
	if err != nil {
		return false, err
	}
	result, err := c.invoke(c.serviceStub, d, []interface{}{p})
	if err != nil {
		return false, err
	}
	b, _ := result.(bool)
	return b, nil
}

func (c *Client) List(dir path.Path) ([]string, error) {
	d, err := rmi.Describe(serviceIface, "List")
	if err != nil {
		return nil, err
	}
	result, err := c.invoke(c.serviceStub, d, []interface{}{dir})
	if err != nil {
		return nil, err
	}
	names, _ := result.([]string)
	return names, nil
}

func (c *Client) CreateFile(p path.Path) (bool, error) {
	d, err := rmi.Describe(serviceIface, "CreateFile")
	if err != nil {
		return false, err
	}
	result, err := c.invoke(c.serviceStub, d, []interface{}{p})
	if err != nil {
		return false, err
	}
	b, _ := result.(bool)
	return b, nil
}

func (c *Client) CreateDirectory(p path.Path) (bool, error) {
	d, err := rmi.Describe(serviceIface, "CreateDirectory")
	if err != nil {
		return false, err
	}
	result, err := c.invoke(c.serviceStub, d, []interface{}{p})
	if err != nil {
		return false, err
	}
	b, _ := result.(bool)
	return b, nil
}

func (c *Client) Delete(p path.Path) error {
	d, err := rmi.Describe(serviceIface, "Delete")
	if err != nil {
		return err
	}
	_, err = c.invoke(c.serviceStub, d, []interface{}{p})
	return err
}

func (c *Client) GetStorage(p path.Path) (rmi.Stub, error) {
	d, err := rmi.Describe(serviceIface, "GetStorage")
	if err != nil {
		return rmi.Stub{}, err
	}
	result, err := c.invoke(c.serviceStub, d, []interface{}{p})
	if err != nil {
		return rmi.Stub{}, err
	}
	stub, ok := result.(rmi.Stub)
	if !ok {
		return rmi.Stub{}, errors.RMI("nclient", "GetStorage", errors.New(errors.KindRMI, "nclient", "GetStorage", "unexpected result type"))
	}
	return stub, nil
}
