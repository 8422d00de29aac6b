// Package path implements the immutable, hierarchical path value that keys
// the rest of distfs: the naming core's directory and file maps, the wire
// representation of every naming-service argument that names a location, and
// the mapping onto a storage server's local directory tree.
package path

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/distfs/distfs/pkg/errors"
)

func init() {
	gob.Register(Path{})
	gob.Register([]Path{})
}

// Path is an immutable, ordered sequence of non-empty components. The zero
// value is the root. Paths are value types: compare them with Equals or use
// them directly as map keys via String().
type Path struct {
	components []string
}

// Root returns the root path.
func Root() Path {
	return Path{}
}

// Parse parses s into a Path. s must begin with "/", must not contain ":",
// and every component obtained by splitting on "/" (ignoring empty
// components produced by repeated slashes) must be non-empty and free of
// ":" and "/".
func Parse(s string) (Path, error) {
	if !strings.HasPrefix(s, "/") {
		return Path{}, errors.InvalidArgument("path", "parse", "path must begin with '/': "+s)
	}
	if strings.Contains(s, ":") {
		return Path{}, errors.InvalidArgument("path", "parse", "path must not contain ':': "+s)
	}

	var components []string
	for _, c := range strings.Split(s, "/") {
		if c == "" {
			continue
		}
		components = append(components, c)
	}
	return Path{components: components}, nil
}

// Append returns a new path equal to p with component appended.
func Append(p Path, component string) (Path, error) {
	if component == "" || strings.Contains(component, "/") || strings.Contains(component, ":") {
		return Path{}, errors.InvalidArgument("path", "append", "invalid component: "+component)
	}
	next := make([]string, len(p.components)+1)
	copy(next, p.components)
	next[len(p.components)] = component
	return Path{components: next}, nil
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p.components) == 0
}

// Parent returns p's parent. Fails with InvalidArgument if p is root.
func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return Path{}, errors.InvalidArgument("path", "parent", "root has no parent")
	}
	return Path{components: p.components[:len(p.components)-1]}, nil
}

// Last returns p's final component. Fails with InvalidArgument if p is root.
func (p Path) Last() (string, error) {
	if p.IsRoot() {
		return "", errors.InvalidArgument("path", "last", "root has no last component")
	}
	return p.components[len(p.components)-1], nil
}

// IsSubpath reports whether q's component sequence is a prefix of p's.
// Every path is a subpath of itself. Comparison is component-wise, so
// IsSubpath(Parse("/foobar"), Parse("/foo")) is false even though "/foobar"
// has "/foo" as a string prefix.
func (p Path) IsSubpath(q Path) bool {
	if len(q.components) > len(p.components) {
		return false
	}
	for i, c := range q.components {
		if p.components[i] != c {
			return false
		}
	}
	return true
}

// Equals reports value equality: two paths are equal iff their component
// sequences are equal.
func (p Path) Equals(q Path) bool {
	if len(p.components) != len(q.components) {
		return false
	}
	for i, c := range p.components {
		if q.components[i] != c {
			return false
		}
	}
	return true
}

// String serializes p: "/" for root, otherwise "/c1/c2/.../cn".
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	return "/" + strings.Join(p.components, "/")
}

// GobEncode serializes p as its canonical string form, so the wire
// representation of a Path is exactly the §3 serialized form.
func (p Path) GobEncode() ([]byte, error) {
	return []byte(p.String()), nil
}

// GobDecode reconstructs p from its canonical string form.
func (p *Path) GobDecode(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Iterate returns p's components outermost first. The returned slice is a
// fresh copy; mutating it does not affect p.
func (p Path) Iterate() []string {
	out := make([]string, len(p.components))
	copy(out, p.components)
	return out
}

// Depth returns the number of components in p (0 for root).
func (p Path) Depth() int {
	return len(p.components)
}

// Ancestors returns every proper ancestor of p, outermost (root) first,
// excluding p itself. Root's ancestor list is empty.
func (p Path) Ancestors() []Path {
	if p.IsRoot() {
		return nil
	}
	out := make([]Path, len(p.components))
	for i := range out {
		out[i] = Path{components: append([]string(nil), p.components[:i]...)}
	}
	return out
}

// ToLocalFile returns the local-filesystem handle corresponding to p rooted
// under root: the components joined component-wise under root.
func (p Path) ToLocalFile(root string) string {
	elems := append([]string{root}, p.components...)
	return filepath.Join(elems...)
}

// ListLocal enumerates the local filesystem tree rooted at dir, returning
// the path (relative to dir) of every regular file found. Fails with
// NotFound if dir does not exist, InvalidArgument if dir is not a directory.
func ListLocal(dir string) ([]Path, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, errors.NotFound("path", "listLocal", dir)
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidArgument, "path", "listLocal", err)
	}
	if !info.IsDir() {
		return nil, errors.InvalidArgument("path", "listLocal", dir+" is not a directory")
	}

	var out []Path
	err = filepath.Walk(dir, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return relErr
		}
		parsed, parseErr := Parse("/" + filepath.ToSlash(rel))
		if parseErr != nil {
			return fmt.Errorf("listLocal: %s: %w", p, parseErr)
		}
		out = append(out, parsed)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidArgument, "path", "listLocal", err)
	}
	return out, nil
}
