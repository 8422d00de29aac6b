package naming

import (
	"github.com/distfs/distfs/pkg/errors"
	"github.com/distfs/distfs/pkg/path"
	"github.com/distfs/distfs/pkg/rmi"
)

// Delete removes p from the namespace and, for a file, issues a remote
// Delete on its owning binding's command stub. This resolves the spec's
// open question on delete semantics: non-recursive — a directory must
// already be empty — and NotFound on a missing path. If the remote delete
// fails after the namespace has already been updated, the caller sees the
// remote error but the path is already gone locally; this partial-failure
// window is accepted rather than papered over, consistent with the spec's
// "no transactional atomicity across multiple mutations" non-goal.
func (c *Core) Delete(p path.Path) error {
	if p.IsRoot() {
		c.recordOp("delete", true)
		return errors.InvalidArgument("naming.service", "delete", "cannot delete root")
	}
	key := p.String()

	c.mu.Lock()
	if _, isDir := c.directories[key]; isDir {
		if c.hasChildrenLocked(p) {
			c.mu.Unlock()
			c.recordOp("delete", true)
			return errors.InvalidArgument("naming.service", "delete", "directory not empty: "+key)
		}
		delete(c.directories, key)
		c.mu.Unlock()
		c.recordOp("delete", false)
		return nil
	}

	b, isFile := c.files[key]
	if !isFile {
		c.mu.Unlock()
		c.recordOp("delete", true)
		return errors.NotFound("naming.service", "delete", key)
	}
	delete(c.files, key)
	c.registry.release(b, key)
	commandStub := b.Command
	c.mu.Unlock()

	desc, err := rmi.Describe(commandIface, "Delete")
	if err != nil {
		c.recordOp("delete", true)
		return err
	}
	_, err = commandStub.Invoke(desc, []interface{}{p})
	c.recordOp("delete", err != nil)
	return err
}

// hasChildrenLocked reports whether dir has any immediate child directory
// or file. Must be called with c.mu held.
func (c *Core) hasChildrenLocked(dir path.Path) bool {
	for candidate := range c.directories {
		if isImmediateChild(dir, candidate) {
			return true
		}
	}
	for candidate := range c.files {
		if isImmediateChild(dir, candidate) {
			return true
		}
	}
	return false
}
