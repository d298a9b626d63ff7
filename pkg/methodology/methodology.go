// Package methodology implements the method catalog: a registry, version
// resolver, and file-backed store keyed by (name, version).
//
// Unregistering a (name, version) simply removes it from the catalog so
// Resolve no longer finds it; any Agent that already holds a *Method
// pointer keeps it reachable and fully functional, since Go's garbage
// collector keeps it alive — no refcount bookkeeping is layered on top.
package methodology

import (
	"sync"

	"github.com/quenio/agerun-go/pkg/method"
	"github.com/quenio/agerun-go/pkg/semver"
)

// Methodology is the catalog of methods keyed by (name, version).
type Methodology struct {
	mu    sync.RWMutex
	names []string                 // insertion order of names, for deterministic save
	byName map[string][]*method.Method // version list in insertion order
}

// New returns an empty Methodology.
func New() *Methodology {
	return &Methodology{byName: make(map[string][]*method.Method)}
}

// ErrVersionConflict is returned by Register when (name, version) already
// exists.
type ErrVersionConflict struct {
	Name, Version string
}

func (e *ErrVersionConflict) Error() string {
	return "methodology: " + e.Name + "@" + e.Version + " already registered"
}

// Register adds m to the catalog. It fails with *ErrVersionConflict if a
// method with the same (Name, Version) is already registered.
func (r *Methodology) Register(m *method.Method) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, exists := r.byName[m.Name]
	if !exists {
		r.names = append(r.names, m.Name)
	}
	for _, existing := range versions {
		if existing.Version == m.Version {
			return &ErrVersionConflict{Name: m.Name, Version: m.Version}
		}
	}
	r.byName[m.Name] = append(versions, m)
	return nil
}

// Unregister removes (name, version) from the catalog. It reports whether
// an entry existed to remove.
func (r *Methodology) Unregister(name, version string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, exists := r.byName[name]
	if !exists {
		return false
	}
	for i, m := range versions {
		if m.Version == version {
			r.byName[name] = append(versions[:i], versions[i+1:]...)
			return true
		}
	}
	return false
}

// GetExact returns the method registered under exactly (name, version).
func (r *Methodology) GetExact(name, version string) (*method.Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.byName[name] {
		if m.Version == version {
			return m, true
		}
	}
	return nil, false
}

// GetLatest returns the semver-max version registered under name.
func (r *Methodology) GetLatest(name string) (*method.Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestLocked(name)
}

func (r *Methodology) latestLocked(name string) (*method.Method, bool) {
	versions := r.byName[name]
	if len(versions) == 0 {
		return nil, false
	}
	strs := make([]string, len(versions))
	for i, m := range versions {
		strs[i] = m.Version
	}
	idx := semver.FindLatest(strs)
	if idx < 0 {
		return nil, false
	}
	return versions[idx], true
}

// Resolve looks up a method given a request (name, spec):
//  1. empty/absent spec -> latest
//  2. a full "x.y.z" spec -> exact match
//  3. otherwise a prefix pattern -> semver-max of matching versions
func (r *Methodology) Resolve(name, spec string) (*method.Method, bool) {
	if spec == "" {
		return r.GetLatest(name)
	}
	if semver.IsFullVersion(spec) {
		return r.GetExact(name, spec)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.byName[name]
	if len(versions) == 0 {
		return nil, false
	}
	strs := make([]string, len(versions))
	for i, m := range versions {
		strs[i] = m.Version
	}
	idx := semver.FindLatestMatching(strs, spec)
	if idx < 0 {
		return nil, false
	}
	return versions[idx], true
}

// AllMethods returns every registered method, grouped by name in
// insertion order, each name's versions in insertion order. Used by the
// persistence codec (pkg methodology's save/load).
func (r *Methodology) AllMethods() map[string][]*method.Method {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]*method.Method, len(r.byName))
	for _, name := range r.names {
		versions := r.byName[name]
		if len(versions) == 0 {
			continue
		}
		cp := make([]*method.Method, len(versions))
		copy(cp, versions)
		out[name] = cp
	}
	return out
}

// Names returns the registered method names in insertion order.
func (r *Methodology) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for _, name := range r.names {
		if len(r.byName[name]) > 0 {
			out = append(out, name)
		}
	}
	return out
}

// Count returns the total number of registered (name, version) entries.
func (r *Methodology) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, versions := range r.byName {
		n += len(versions)
	}
	return n
}
