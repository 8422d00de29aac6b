package naming

import (
	"time"

	"github.com/distfs/distfs/pkg/errors"
	"github.com/distfs/distfs/pkg/path"
	"github.com/distfs/distfs/pkg/rmi"
)

// Registration is the remote interface a storage server calls exactly once,
// at startup, to join the namespace.
type Registration interface {
	Register(storageStub rmi.Stub, commandStub rmi.Stub, paths []path.Path) ([]path.Path, error)
}

// Register records a new storage binding and reconciles its local path list
// against the namespace. Per path: if unknown, it is claimed by this
// binding (and its ancestor directories are created); if already known —
// as a file or a directory — it is returned in the to-delete result, since
// some other binding (or an earlier registration) already owns it. The
// root path, if present, is silently ignored. A binding equal to one
// already registered fails with IllegalState — at-most-once registration.
func (c *Core) Register(storageStub rmi.Stub, commandStub rmi.Stub, paths []path.Path) ([]path.Path, error) {
	if storageStub.Addr == "" || storageStub.InterfaceName == "" {
		c.recordOp("register", true)
		return nil, errors.InvalidArgument("naming.registration", "register", "storage stub must not be empty")
	}
	if commandStub.Addr == "" || commandStub.InterfaceName == "" {
		c.recordOp("register", true)
		return nil, errors.InvalidArgument("naming.registration", "register", "command stub must not be empty")
	}

	b := binding{Storage: storageStub, Command: commandStub}

	c.mu.Lock()
	if c.registry.has(b) {
		c.mu.Unlock()
		c.recordOp("register", true)
		return nil, errors.IllegalState("naming.registration", "register", "binding already registered: "+b.String())
	}
	c.registry.add(b, time.Now())
	workers := c.registrationWorkers
	c.mu.Unlock()

	toDelete := c.reconcile(b, paths, workers)

	c.logger.Info("registered storage binding", "binding", b.String(), "paths", len(paths), "to_delete", len(toDelete))
	c.recordOp("register", false)
	return toDelete, nil
}
