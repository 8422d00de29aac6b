package naming

import (
	"math/rand"
	"time"

	"github.com/distfs/distfs/pkg/rmi"
)

// binding identifies one storage server's two remote-interface handles —
// the key type for the naming core's files map and the registry below.
// rmi.Stub is a plain comparable value, so binding is too, and can be used
// directly as a map key.
type binding struct {
	Storage rmi.Stub
	Command rmi.Stub
}

func (b binding) String() string {
	return b.Storage.String() + "|" + b.Command.String()
}

// bindingInfo is a registry entry: the load-bearing subset of the teacher's
// NodeInfo (internal/distributed/cluster.go) for a single authoritative
// naming process — no health state, no gossip metadata, just what random
// selection and the registration protocol need.
type bindingInfo struct {
	Binding      binding
	RegisteredAt time.Time
	Paths        map[string]struct{}
}

// registry tracks registered storage bindings and the paths each currently
// hosts. It carries no locking of its own: every method here is called
// with the naming core's single coarse monitor already held, per the
// spec's concurrency guidance ("a single coarse monitor on the naming
// object is acceptable" — §5).
type registry struct {
	bindings map[binding]*bindingInfo
}

func newRegistry() *registry {
	return &registry{bindings: make(map[binding]*bindingInfo)}
}

func (r *registry) has(b binding) bool {
	_, ok := r.bindings[b]
	return ok
}

func (r *registry) add(b binding, now time.Time) {
	r.bindings[b] = &bindingInfo{Binding: b, RegisteredAt: now, Paths: make(map[string]struct{})}
}

func (r *registry) claim(b binding, pathKey string) {
	if info, ok := r.bindings[b]; ok {
		info.Paths[pathKey] = struct{}{}
	}
}

func (r *registry) release(b binding, pathKey string) {
	if info, ok := r.bindings[b]; ok {
		delete(info.Paths, pathKey)
	}
}

func (r *registry) pathCount(b binding) int {
	if info, ok := r.bindings[b]; ok {
		return len(info.Paths)
	}
	return 0
}

func (r *registry) count() int {
	return len(r.bindings)
}

// selectRandom draws one binding uniformly at random from every registered
// binding — the teacher's LoadBalancer.SelectNode reduced to a single
// random-draw strategy: no weighting, no health-based exclusion. Tolerates
// concurrent createFile calls landing on the same binding; the spec
// promises only uniform randomness, not load-awareness.
func (r *registry) selectRandom() (binding, bool) {
	if len(r.bindings) == 0 {
		return binding{}, false
	}
	keys := make([]binding, 0, len(r.bindings))
	for b := range r.bindings {
		keys = append(keys, b)
	}
	return keys[rand.Intn(len(keys))], true
}
