// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"

	"github.com/modhost/modhost/pkg/modpack"
)

type (
	// Unmet is one dependency a package declared but could not have.
	Unmet struct {
		modpack.Dependency
		// Found is the version that is loaded but too old; zero when the
		// dependency is not loaded at all.
		Found modpack.Version
	}

	// Removal records a package unregistered by ValidateDependencies.
	Removal struct {
		Package *modpack.Package
		Unmet   []Unmet
	}

	// ValidationReport summarizes one ValidateDependencies run.
	ValidationReport struct {
		// Validated counts packages still registered afterwards.
		Validated int
		// Failed counts removed packages.
		Failed  int
		Removed []Removal
	}
)

// String renders "name: minVersion", with the too-old version when known.
func (u Unmet) String() string {
	if u.Found.IsZero() {
		return u.Dependency.String()
	}
	return fmt.Sprintf("%s (found %s)", u.Dependency, u.Found)
}

// Strings renders every unmet dependency of the removal.
func (rm Removal) Strings() []string {
	out := make([]string, len(rm.Unmet))
	for i, u := range rm.Unmet {
		out[i] = u.String()
	}
	return out
}

// ValidateDependencies removes every package with a dependency that is not
// loaded or loaded below its minimum version. Removing a package can break
// its dependents, so passes repeat until one removes nothing. Running it
// again on the result removes nothing.
func (r *Registry) ValidateDependencies() ValidationReport {
	var report ValidationReport
	for {
		removed := false
		for _, p := range r.byName() {
			unmet := r.unmetDependencies(p)
			if len(unmet) == 0 {
				continue
			}
			r.Unregister(p.ID())
			report.Removed = append(report.Removed, Removal{Package: p, Unmet: unmet})
			removed = true
		}
		if !removed {
			break
		}
	}
	report.Failed = len(report.Removed)
	report.Validated = r.Len()
	return report
}

// Unmet returns the dependencies of p that the registry cannot satisfy.
func (r *Registry) Unmet(p *modpack.Package) []Unmet {
	return r.unmetDependencies(p)
}

// A package never satisfies its own dependency.
func (r *Registry) unmetDependencies(p *modpack.Package) []Unmet {
	var unmet []Unmet
	for _, d := range p.Dependencies {
		dep, ok := r.Lookup(d.Name)
		switch {
		case !ok || dep == p:
			unmet = append(unmet, Unmet{Dependency: d})
		case !dep.Version.AtLeast(d.MinVersion):
			unmet = append(unmet, Unmet{Dependency: d, Found: dep.Version})
		}
	}
	return unmet
}
