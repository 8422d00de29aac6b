package naming

import (
	"sort"

	"github.com/distfs/distfs/pkg/errors"
	"github.com/distfs/distfs/pkg/path"
	"github.com/distfs/distfs/pkg/rmi"
)

// Service is the remote interface clients call to query and mutate the
// namespace.
type Service interface {
	IsDirectory(p path.Path) (bool, error)
	List(dir path.Path) ([]string, error)
	CreateFile(p path.Path) (bool, error)
	CreateDirectory(p path.Path) (bool, error)
	Delete(p path.Path) error
	GetStorage(p path.Path) (rmi.Stub, error)
}

// IsDirectory reports whether p is a known directory. Fails with NotFound
// if p is in neither directories nor files.
func (c *Core) IsDirectory(p path.Path) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := p.String()
	if _, ok := c.directories[key]; ok {
		return true, nil
	}
	if _, ok := c.files[key]; ok {
		return false, nil
	}
	return false, errors.NotFound("naming.service", "isDirectory", key)
}

// List returns the immediate children (file and directory last-components)
// of dir. Fails with NotFound if dir is not a known directory.
func (c *Core) List(dir path.Path) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := dir.String()
	if _, ok := c.directories[key]; !ok {
		return nil, errors.NotFound("naming.service", "list", key)
	}

	seen := make(map[string]struct{})
	for candidate := range c.directories {
		addChildName(dir, candidate, seen)
	}
	for candidate := range c.files {
		addChildName(dir, candidate, seen)
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func addChildName(dir path.Path, candidateStr string, seen map[string]struct{}) {
	if !isImmediateChild(dir, candidateStr) {
		return
	}
	candidate, err := path.Parse(candidateStr)
	if err != nil {
		return
	}
	last, err := candidate.Last()
	if err != nil {
		return
	}
	seen[last] = struct{}{}
}

// CreateFile creates p if its parent is an existing directory and p is not
// already present: a storage binding is selected uniformly at random and
// asked, over its command stub, to create the file; on success p is
// recorded in files bound to that server. Returns false (no error) if p
// already exists. Fails with NotFound if the parent is not a directory,
// IllegalState if no storage server is registered.
func (c *Core) CreateFile(p path.Path) (bool, error) {
	if p.IsRoot() {
		return false, errors.InvalidArgument("naming.service", "createFile", "cannot create a file at root")
	}
	parent, err := p.Parent()
	if err != nil {
		return false, errors.Wrap(errors.KindInvalidArgument, "naming.service", "createFile", err)
	}

	c.mu.Lock()
	key, parentKey := p.String(), parent.String()
	if _, ok := c.directories[parentKey]; !ok {
		c.mu.Unlock()
		c.recordOp("createFile", true)
		return false, errors.NotFound("naming.service", "createFile", parentKey)
	}
	if _, isDir := c.directories[key]; isDir {
		c.mu.Unlock()
		c.recordOp("createFile", false)
		return false, nil
	}
	if _, isFile := c.files[key]; isFile {
		c.mu.Unlock()
		c.recordOp("createFile", false)
		return false, nil
	}
	b, ok := c.registry.selectRandom()
	if !ok {
		c.mu.Unlock()
		c.recordOp("createFile", true)
		return false, errors.IllegalState("naming.service", "createFile", "no storage server registered")
	}
	commandStub := b.Command
	c.mu.Unlock()

	desc, err := rmi.Describe(commandIface, "Create")
	if err != nil {
		c.recordOp("createFile", true)
		return false, err
	}
	if _, err := commandStub.Invoke(desc, []interface{}{p}); err != nil {
		c.recordOp("createFile", true)
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under lock: a concurrent createFile or registration may
	// have claimed p while the remote create was in flight.
	if _, isDir := c.directories[key]; isDir {
		c.recordOp("createFile", false)
		return false, nil
	}
	if _, isFile := c.files[key]; isFile {
		c.recordOp("createFile", false)
		return false, nil
	}
	for _, anc := range p.Ancestors() {
		c.directories[anc.String()] = struct{}{}
	}
	c.files[key] = b
	c.registry.claim(b, key)
	c.recordOp("createFile", false)
	return true, nil
}

// CreateDirectory creates p in directories iff its parent is a directory
// and p is not already present.
func (c *Core) CreateDirectory(p path.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}
	parent, err := p.Parent()
	if err != nil {
		return false, errors.Wrap(errors.KindInvalidArgument, "naming.service", "createDirectory", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key, parentKey := p.String(), parent.String()
	if _, ok := c.directories[parentKey]; !ok {
		c.recordOp("createDirectory", true)
		return false, errors.NotFound("naming.service", "createDirectory", parentKey)
	}
	if _, isDir := c.directories[key]; isDir {
		c.recordOp("createDirectory", false)
		return false, nil
	}
	if _, isFile := c.files[key]; isFile {
		c.recordOp("createDirectory", false)
		return false, nil
	}
	c.directories[key] = struct{}{}
	c.recordOp("createDirectory", false)
	return true, nil
}

// GetStorage returns the storage stub bound to file p. Fails with NotFound
// if p is not a registered file.
func (c *Core) GetStorage(p path.Path) (rmi.Stub, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.files[p.String()]
	if !ok {
		return rmi.Stub{}, errors.NotFound("naming.service", "getStorage", p.String())
	}
	return b.Storage, nil
}
