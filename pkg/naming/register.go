package naming

import (
	"sync"

	"github.com/distfs/distfs/pkg/path"
)

// reconcile partitions a storage server's registration path list against
// the current namespace. Grounded on the teacher's batch Processor
// (internal/batch/processor.go): each path's accept/reject decision is
// independent of every other path's once the binding itself is locked in
// by the caller, so the list is fanned out across a small worker group
// instead of walked one path at a time; only the actual namespace mutation
// is serialized, inside tryClaim, under c.mu.
func (c *Core) reconcile(b binding, paths []path.Path, workers int) []path.Path {
	if workers <= 0 {
		workers = 1
	}

	type outcome struct {
		p        path.Path
		accepted bool
	}

	jobs := make(chan path.Path)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				results <- outcome{p: p, accepted: c.tryClaim(b, p)}
			}
		}()
	}

	go func() {
		for _, p := range paths {
			if p.IsRoot() {
				continue
			}
			jobs <- p
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var toDelete []path.Path
	for r := range results {
		if !r.accepted {
			toDelete = append(toDelete, r.p)
		}
	}
	return toDelete
}

// tryClaim attempts to add p to the namespace under binding b. Returns
// false, leaving the namespace untouched, if p is already known as a file
// or a directory.
func (c *Core) tryClaim(b binding, p path.Path) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := p.String()
	if _, isDir := c.directories[key]; isDir {
		return false
	}
	if _, isFile := c.files[key]; isFile {
		return false
	}

	for _, anc := range p.Ancestors() {
		c.directories[anc.String()] = struct{}{}
	}
	c.files[key] = b
	c.registry.claim(b, key)
	return true
}
