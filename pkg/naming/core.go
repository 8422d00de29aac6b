// Package naming implements the authoritative in-memory filesystem
// namespace (spec C5): the directory/file maps, the storage-registration
// protocol, and the two remote interfaces (Registration, Service) a naming
// process exposes over its own RMI skeletons.
package naming

import (
	"reflect"
	"sync"
	"time"

	"github.com/distfs/distfs/pkg/errors"
	"github.com/distfs/distfs/pkg/logging"
	"github.com/distfs/distfs/pkg/path"
	"github.com/distfs/distfs/pkg/rmi"
	"github.com/distfs/distfs/pkg/storage"
)

var (
	registrationIface = reflect.TypeOf((*Registration)(nil)).Elem()
	serviceIface      = reflect.TypeOf((*Service)(nil)).Elem()
	commandIface      = reflect.TypeOf((*storage.Command)(nil)).Elem()
)

// StoppedHook is invoked once when the naming core shuts down; cause is
// non-nil only on abnormal termination (a listenError from either
// skeleton).
type StoppedHook func(cause error)

// OpsObserver is notified after every namespace-mutating operation
// (Register, CreateFile, CreateDirectory, Delete) with its name and
// whether it failed. Used to feed internal/metrics without this package
// depending on it directly.
type OpsObserver func(op string, failed bool)

// Core is the naming service's authoritative namespace: the set of known
// directories, the file-to-binding map, and the registry of what each
// binding hosts, all mutated under a single coarse monitor (mu) per the
// spec's concurrency design notes for this size of namespace. Core directly
// implements both Registration and Service — it is passed as the
// implementation object to both of the naming process's skeletons.
type Core struct {
	mu          sync.Mutex
	directories map[string]struct{}
	files       map[string]binding
	registry    *registry

	started bool
	stopped bool

	logger *logging.Logger

	registrationSkeleton *rmi.Skeleton
	serviceSkeleton      *rmi.Skeleton

	stoppedHook         StoppedHook
	opsObserver         OpsObserver
	callObserver        rmi.CallObserver
	poolSizeObserver    rmi.PoolSizeObserver
	registrationWorkers int
	idleWorkerTimeout   time.Duration
}

// NewCore constructs a naming core with an empty namespace containing only
// the root directory.
func NewCore() *Core {
	return &Core{
		directories:         map[string]struct{}{path.Root().String(): {}},
		files:               make(map[string]binding),
		registry:            newRegistry(),
		logger:              logging.NewDefault().With("component", "naming.core"),
		registrationWorkers: 4,
	}
}

// SetStoppedHook overrides the shutdown hook.
func (c *Core) SetStoppedHook(h StoppedHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stoppedHook = h
}

// SetOpsObserver overrides the namespace-operation observer. Call before
// Start.
func (c *Core) SetOpsObserver(o OpsObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opsObserver = o
}

// SetCallObserver overrides the RMI call observer applied to both
// skeletons. Call before Start.
func (c *Core) SetCallObserver(o rmi.CallObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callObserver = o
}

// SetPoolSizeObserver overrides the worker-pool-size observer applied to
// both skeletons. Call before Start.
func (c *Core) SetPoolSizeObserver(o rmi.PoolSizeObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poolSizeObserver = o
}

// SetRegistrationWorkers overrides the fan-out width used to reconcile a
// storage server's registration path list. Call before Start.
func (c *Core) SetRegistrationWorkers(n int) {
	if n <= 0 {
		n = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrationWorkers = n
}

// SetIdleWorkerTimeout overrides the idle-worker timeout applied to both
// skeletons' worker pools. Call before Start.
func (c *Core) SetIdleWorkerTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idleWorkerTimeout = d
}

// Start binds the registration and service skeletons and flips the
// monostate start flag. The core may never be started again, even after a
// later Stop.
func (c *Core) Start(registrationAddr, serviceAddr string) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.IllegalState("naming.core", "start", "naming core already started")
	}
	c.started = true
	c.mu.Unlock()

	regSk, err := rmi.NewSkeleton(registrationIface, c, registrationAddr)
	if err != nil {
		return err
	}
	svcSk, err := rmi.NewSkeleton(serviceIface, c, serviceAddr)
	if err != nil {
		return err
	}
	regSk.SetListenErrorHook(c.onListenError)
	svcSk.SetListenErrorHook(c.onListenError)

	c.mu.Lock()
	callObserver, poolSizeObserver := c.callObserver, c.poolSizeObserver
	idleWorkerTimeout := c.idleWorkerTimeout
	c.mu.Unlock()
	if callObserver != nil {
		regSk.SetCallObserver(callObserver)
		svcSk.SetCallObserver(callObserver)
	}
	if poolSizeObserver != nil {
		regSk.SetPoolSizeObserver(poolSizeObserver)
		svcSk.SetPoolSizeObserver(poolSizeObserver)
	}
	regSk.SetIdleWorkerTimeout(idleWorkerTimeout)
	svcSk.SetIdleWorkerTimeout(idleWorkerTimeout)

	if err := regSk.Start(); err != nil {
		return err
	}
	if err := svcSk.Start(); err != nil {
		_ = regSk.Stop()
		return err
	}

	c.mu.Lock()
	c.registrationSkeleton = regSk
	c.serviceSkeleton = svcSk
	c.mu.Unlock()

	c.logger.Info("started", "registration_addr", regSk.Address(), "service_addr", svcSk.Address())
	return nil
}

// Stop shuts down both skeletons. After Stop, Start always fails with
// IllegalState — the naming core's start flag is monostate, not a
// toggle.
func (c *Core) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return errors.IllegalState("naming.core", "stop", "naming core was never started")
	}
	if c.stopped {
		c.mu.Unlock()
		return errors.IllegalState("naming.core", "stop", "naming core already stopped")
	}
	c.stopped = true
	regSk, svcSk, hook := c.registrationSkeleton, c.serviceSkeleton, c.stoppedHook
	c.mu.Unlock()

	var firstErr error
	if regSk != nil {
		if err := regSk.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if svcSk != nil {
		if err := svcSk.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.logger.Info("stopped")
	if hook != nil {
		hook(nil)
	}
	return firstErr
}

// RegistrationAddress returns the bound address of the registration
// skeleton, or "" before Start.
func (c *Core) RegistrationAddress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registrationSkeleton == nil {
		return ""
	}
	return c.registrationSkeleton.Address()
}

// ServiceAddress returns the bound address of the service skeleton, or ""
// before Start.
func (c *Core) ServiceAddress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.serviceSkeleton == nil {
		return ""
	}
	return c.serviceSkeleton.Address()
}

func (c *Core) onListenError(err error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	hook := c.stoppedHook
	c.mu.Unlock()

	c.logger.Error("listener failed, stopping naming core", "error", err)
	if hook != nil {
		hook(err)
	}
}

func (c *Core) recordOp(op string, failed bool) {
	c.mu.Lock()
	observer := c.opsObserver
	c.mu.Unlock()
	if observer != nil {
		observer(op, failed)
	}
}

func isImmediateChild(dir path.Path, candidateStr string) bool {
	candidate, err := path.Parse(candidateStr)
	if err != nil || candidate.IsRoot() {
		return false
	}
	return candidate.IsSubpath(dir) && candidate.Depth() == dir.Depth()+1
}
