// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/modhost/modhost/internal/dag"
	"github.com/modhost/modhost/pkg/guid"
	"github.com/modhost/modhost/pkg/modpack"
	"github.com/modhost/modhost/pkg/resource"
)

var (
	// ErrDuplicateName is returned when registering a package whose ID is
	// already taken.
	ErrDuplicateName = errors.New("duplicate package name")

	// ErrPackageNotFound is returned for lookups of unregistered packages.
	ErrPackageNotFound = errors.New("package not found")
)

type (
	// DuplicateNameError names both sides of a rejected registration.
	DuplicateNameError struct {
		Name     string
		Dir      string
		Existing string
	}

	// Registry maps package IDs to loaded packages.
	Registry struct {
		packages map[guid.PackageID]*modpack.Package
		sequence []*modpack.Package
	}
)

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("package %q at %s is already registered from %s", e.Name, e.Dir, e.Existing)
}

// Unwrap returns ErrDuplicateName.
func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

// New returns an empty registry.
func New() *Registry {
	return &Registry{packages: make(map[guid.PackageID]*modpack.Package)}
}

// Register adds p. The processing sequence is not updated until
// RecalculateProcessingSequence runs; until then p is appended at the end.
func (r *Registry) Register(p *modpack.Package) error {
	id := p.ID()
	if existing, ok := r.packages[id]; ok {
		return &DuplicateNameError{Name: string(p.Name), Dir: p.Dir, Existing: existing.Dir}
	}
	r.packages[id] = p
	r.sequence = append(r.sequence, p)
	return nil
}

// Unregister removes the package with the given ID and returns it.
func (r *Registry) Unregister(id guid.PackageID) (*modpack.Package, bool) {
	p, ok := r.packages[id]
	if !ok {
		return nil, false
	}
	delete(r.packages, id)
	r.sequence = slices.DeleteFunc(r.sequence, func(q *modpack.Package) bool { return q == p })
	return p, true
}

// Get returns the package with the given ID.
func (r *Registry) Get(id guid.PackageID) (*modpack.Package, bool) {
	p, ok := r.packages[id]
	return p, ok
}

// Lookup returns the package with the given name, ignoring case.
func (r *Registry) Lookup(name string) (*modpack.Package, bool) {
	p, ok := r.Get(guid.PackageIDOf(name))
	if !ok || !strings.EqualFold(string(p.Name), name) {
		return nil, false
	}
	return p, true
}

// MustLookup is Lookup returning ErrPackageNotFound for unknown names.
func (r *Registry) MustLookup(name string) (*modpack.Package, error) {
	p, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrPackageNotFound)
	}
	return p, nil
}

// Len returns the number of registered packages.
func (r *Registry) Len() int { return len(r.packages) }

// Packages returns the packages in processing order.
func (r *Registry) Packages() []*modpack.Package {
	return slices.Clone(r.sequence)
}

// Names returns the package names in processing order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.sequence))
	for i, p := range r.sequence {
		names[i] = string(p.Name)
	}
	return names
}

// byName returns the packages sorted by name, the deterministic base order
// for validation and sequencing.
func (r *Registry) byName() []*modpack.Package {
	out := make([]*modpack.Package, 0, len(r.packages))
	for _, p := range r.packages {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *modpack.Package) int { return strings.Compare(string(a.Name), string(b.Name)) })
	return out
}

// FindRecord resolves a resource GUID through its owning package.
func (r *Registry) FindRecord(id guid.ResourceGUID) (*resource.Record, bool) {
	p, ok := r.packages[id.Package()]
	if !ok {
		return nil, false
	}
	return p.Resource(id)
}

// Referrers scans every loaded package for records that keep h alive: the
// record owning h and any record whose payload holds h.
func (r *Registry) Referrers(h *resource.Handle) []*resource.Record {
	var out []*resource.Record
	for _, p := range r.sequence {
		for _, rec := range p.Resources() {
			if rec.Handle() == h {
				out = append(out, rec)
				continue
			}
			if slices.Contains(resource.ReferencesOf(rec.Payload()), h) {
				out = append(out, rec)
			}
		}
	}
	return out
}

// RecalculateProcessingSequence orders the packages so that every package
// comes after the loaded packages named in its ordering hints. Hints naming
// unloaded packages are ignored. Packages without constraints keep name
// order. When the hints are cyclic, a best-effort sequence is still installed
// and the returned error is a *dag.CycleError describing the conflict.
func (r *Registry) RecalculateProcessingSequence() error {
	pkgs := r.byName()
	g := dag.New()
	for _, p := range pkgs {
		g.AddNode(string(p.Name))
	}
	for _, p := range pkgs {
		for _, hint := range p.ProcessAfter {
			if hint == string(p.Name) {
				continue
			}
			if _, ok := r.Lookup(hint); ok {
				g.AddEdge(hint, string(p.Name))
			}
		}
	}

	order, cycle := g.Order()
	seq := make([]*modpack.Package, 0, len(order))
	for _, name := range order {
		p, _ := r.Lookup(name)
		seq = append(seq, p)
	}
	r.sequence = seq

	if cycle != nil {
		return cycle
	}
	return nil
}

// TeardownOrder returns the packages in the order they are safely unloaded:
// every package comes before the loaded packages it depends on. Otherwise
// the reverse processing order is kept. Dependency cycles do not fail; the
// blocked packages keep their reverse processing order.
func (r *Registry) TeardownOrder() []*modpack.Package {
	pkgs := slices.Clone(r.sequence)
	slices.Reverse(pkgs)

	g := dag.New()
	for _, p := range pkgs {
		g.AddNode(string(p.Name))
	}
	for _, p := range pkgs {
		for _, d := range p.Dependencies {
			if dep, ok := r.Lookup(d.Name); ok && dep != p {
				g.AddEdge(string(p.Name), string(dep.Name))
			}
		}
	}

	order, _ := g.Order()
	out := make([]*modpack.Package, 0, len(order))
	for _, name := range order {
		p, _ := r.Lookup(name)
		out = append(out, p)
	}
	return out
}
