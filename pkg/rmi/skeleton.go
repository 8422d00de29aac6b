package rmi

import (
	"encoding/gob"
	"fmt"
	"net"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/distfs/distfs/pkg/errors"
	"github.com/distfs/distfs/pkg/logging"
)

// SkeletonState is the C3 state machine: Created -> Running -> Stopped.
// Stopped is terminal.
type SkeletonState int32

const (
	Created SkeletonState = iota
	Running
	Stopped
)

func (s SkeletonState) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// idleWorkerTimeout bounds how long a worker in the cached pool waits for a
// new connection before exiting.
const idleWorkerTimeout = 30 * time.Second

// ListenErrorHook is invoked when the acceptor fails for a reason other than
// the normal stop. Overridable; the default policy stops the skeleton.
type ListenErrorHook func(err error)

// ServiceErrorHook is invoked when a worker hits a protocol-level failure
// (malformed frame, I/O error before dispatch). Overridable; with no hook
// set, the skeleton logs the error and continues serving. The skeleton
// ignores the hook's return value and keeps serving either way.
type ServiceErrorHook func(err error) bool

// CallObserver is notified after every dispatched call with the serving
// interface and method name, how long the implementation took, and whether
// it failed. Used to feed internal/metrics without this package depending
// on it directly.
type CallObserver func(iface, method string, duration time.Duration, failed bool)

// PoolSizeObserver is notified after every accepted connection with the
// serving interface and the worker pool's current live-goroutine count.
type PoolSizeObserver func(iface string, size int)

// Skeleton is the server-side RMI endpoint (C3): it accepts TCP connections
// for one remote interface, dispatches each to impl, and writes back the
// result or the thrown failure.
type Skeleton struct {
	ifaceType reflect.Type
	impl      interface{}
	implValue reflect.Value
	logger    *logging.Logger
	cache     *descriptorCache

	mu       sync.Mutex
	state    SkeletonState
	addr     string
	listener net.Listener
	done     chan struct{}

	listenErrorHook  ListenErrorHook
	serviceErrorHook ServiceErrorHook
	callObserver     CallObserver
	poolSizeObserver PoolSizeObserver

	pool *workerPool
}

// NewSkeleton constructs a skeleton serving ifaceType by dispatching to
// impl. addr may be empty, meaning the OS assigns a port on Start.
// Construction fails with InvalidArgument if ifaceType is not a remote
// interface or impl does not implement it.
func NewSkeleton(ifaceType reflect.Type, impl interface{}, addr string) (*Skeleton, error) {
	if ifaceType == nil || impl == nil {
		return nil, errors.InvalidArgument("rmi.skeleton", "new", "interface and implementation must not be nil")
	}
	if !IsRemoteInterface(ifaceType) {
		return nil, errors.InvalidArgument("rmi.skeleton", "new", ifaceType.String()+" is not a remote interface")
	}
	implValue := reflect.ValueOf(impl)
	if !implValue.Type().Implements(ifaceType) {
		return nil, errors.InvalidArgument("rmi.skeleton", "new", fmt.Sprintf("%T does not implement %s", impl, ifaceType))
	}

	return &Skeleton{
		ifaceType:        ifaceType,
		impl:             impl,
		implValue:        implValue,
		logger:           logging.NewDefault().With("component", "rmi.skeleton", "interface", ifaceType.String()),
		cache:            newDescriptorCache(256),
		state:            Created,
		addr:             addr,
		done:             make(chan struct{}),
		listenErrorHook:  nil,
		serviceErrorHook: nil,
		pool:             newWorkerPool(),
	}, nil
}

// SetListenErrorHook overrides the listen-error hook.
func (s *Skeleton) SetListenErrorHook(h ListenErrorHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenErrorHook = h
}

// SetServiceErrorHook overrides the service-error hook.
func (s *Skeleton) SetServiceErrorHook(h ServiceErrorHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceErrorHook = h
}

// SetCallObserver registers a hook notified after every dispatched call.
func (s *Skeleton) SetCallObserver(o CallObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callObserver = o
}

// SetPoolSizeObserver registers a hook notified after every accepted
// connection with the worker pool's current size.
func (s *Skeleton) SetPoolSizeObserver(o PoolSizeObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poolSizeObserver = o
}

// SetIdleWorkerTimeout overrides how long a worker in the cached pool waits
// for a new connection before exiting. d <= 0 is ignored. Call before Start.
func (s *Skeleton) SetIdleWorkerTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool.idleTimeout = d
}

// State returns the skeleton's current lifecycle state.
func (s *Skeleton) State() SkeletonState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Address returns the skeleton's bound address, or "" if it has never been
// started and was constructed without a preassigned address.
func (s *Skeleton) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listener (assigning a concrete port if addr was empty)
// and spawns the acceptor. Starts are serialized by s.mu. A skeleton that
// has been stopped may never be started again.
func (s *Skeleton) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Created {
		return errors.IllegalState("rmi.skeleton", "start", "skeleton is "+s.state.String()+", not created")
	}

	bindAddr := s.addr
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return errors.Wrap(errors.KindIllegalState, "rmi.skeleton", "start", err)
	}

	s.listener = listener
	s.addr = listener.Addr().String()
	s.state = Running
	s.logger.Info("starting", "addr", s.addr)

	go s.acceptLoop()
	return nil
}

// Stop marks the skeleton stopped and closes the listener, which unblocks
// the acceptor with an expected error. Returns once the acceptor has
// exited; in-flight workers may still be draining.
func (s *Skeleton) Stop() error {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return errors.IllegalState("rmi.skeleton", "stop", "skeleton is "+s.state.String()+", not running")
	}
	s.state = Stopped
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	<-s.done
	s.logger.Info("stopped")
	return nil
}

func (s *Skeleton) acceptLoop() {
	defer close(s.done)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.state == Stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			s.handleListenError(err)
			return
		}
		s.pool.submit(conn, s.serve)

		s.mu.Lock()
		observer := s.poolSizeObserver
		s.mu.Unlock()
		if observer != nil {
			observer(s.ifaceType.String(), s.pool.Size())
		}
	}
}

func (s *Skeleton) handleListenError(err error) {
	s.mu.Lock()
	hook := s.listenErrorHook
	s.state = Stopped
	s.mu.Unlock()

	if hook != nil {
		hook(err)
	} else {
		s.logger.Error("listen error, stopping", "error", err)
	}
}

func (s *Skeleton) reportServiceError(err error) {
	s.mu.Lock()
	hook := s.serviceErrorHook
	s.mu.Unlock()

	if hook != nil {
		hook(err)
		return
	}
	s.logger.Warn("service error", "error", err)
}

// serve implements the per-connection protocol of spec §4.3: open the
// output stream before the input stream, decode one request frame, dispatch
// it, and write back exactly one response frame.
func (s *Skeleton) serve(conn net.Conn) {
	defer conn.Close()

	enc := gob.NewEncoder(conn)
	dec := gob.NewDecoder(conn)

	var req wireRequest
	if err := dec.Decode(&req); err != nil {
		s.reportServiceError(fmt.Errorf("decode request: %w", err))
		return
	}

	method, found := findInCached(s.cache, s.ifaceType, req.Method)
	if !found {
		resp := wireResponse{Failure: toWireFailure(errors.New(errors.KindRMI, "rmi.skeleton", "dispatch", "no such method: "+req.Method.Name))}
		_ = enc.Encode(resp)
		return
	}

	impl := s.implValue.MethodByName(method.Name)
	if !impl.IsValid() {
		resp := wireResponse{Failure: toWireFailure(errors.New(errors.KindRMI, "rmi.skeleton", "dispatch", "implementation missing method: "+method.Name))}
		_ = enc.Encode(resp)
		return
	}

	if len(req.Args) != impl.Type().NumIn() {
		resp := wireResponse{Failure: toWireFailure(errors.New(errors.KindRMI, "rmi.skeleton", "dispatch", "argument count mismatch for "+method.Name))}
		_ = enc.Encode(resp)
		return
	}

	args := make([]reflect.Value, len(req.Args))
	for i, a := range req.Args {
		args[i] = toArgValue(a, impl.Type().In(i))
	}

	start := time.Now()
	results := impl.Call(args)
	elapsed := time.Since(start)

	resp := s.buildResponse(results)

	s.mu.Lock()
	observer := s.callObserver
	s.mu.Unlock()
	if observer != nil {
		observer(s.ifaceType.String(), method.Name, elapsed, resp.Failure != nil)
	}

	if err := enc.Encode(resp); err != nil {
		s.reportServiceError(fmt.Errorf("encode response: %w", err))
	}
}

func (s *Skeleton) buildResponse(results []reflect.Value) wireResponse {
	errVal := results[len(results)-1]
	if !errVal.IsNil() {
		return wireResponse{Failure: toWireFailure(errVal.Interface().(error))}
	}
	if len(results) == 1 {
		return wireResponse{}
	}
	return wireResponse{Result: results[0].Interface()}
}

func toArgValue(arg interface{}, t reflect.Type) reflect.Value {
	if arg == nil {
		return reflect.Zero(t)
	}
	v := reflect.ValueOf(arg)
	if v.Type() != t && v.Type().ConvertibleTo(t) {
		return v.Convert(t)
	}
	return v
}

// workerPool is the cached worker pool of spec §3/§4.3: workers are created
// on demand and reused while idle, grounded on the teacher's connection-pool
// shape (internal/storage/s3/pool.go) adapted from object-store connection
// reuse to TCP-connection-handling goroutine reuse.
type workerPool struct {
	jobs        chan net.Conn
	size        int32
	idleTimeout time.Duration
}

func newWorkerPool() *workerPool {
	return &workerPool{jobs: make(chan net.Conn), idleTimeout: idleWorkerTimeout}
}

// Size returns the current number of live worker goroutines, idle or busy.
func (p *workerPool) Size() int {
	return int(atomic.LoadInt32(&p.size))
}

// submit hands conn to an idle worker if one is waiting, otherwise spawns a
// new one which, after handling conn, becomes an idle worker itself for up
// to p.idleTimeout.
func (p *workerPool) submit(conn net.Conn, handle func(net.Conn)) {
	select {
	case p.jobs <- conn:
	default:
		atomic.AddInt32(&p.size, 1)
		go func() {
			handle(conn)
			p.idleWait(handle)
			atomic.AddInt32(&p.size, -1)
		}()
	}
}

func (p *workerPool) idleWait(handle func(net.Conn)) {
	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()
	for {
		select {
		case conn, ok := <-p.jobs:
			if !ok {
				return
			}
			handle(conn)
			timer.Reset(p.idleTimeout)
		case <-timer.C:
			return
		}
	}
}
