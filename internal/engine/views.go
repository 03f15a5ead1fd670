// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"github.com/modhost/modhost/pkg/guid"
	"github.com/modhost/modhost/pkg/modpack"
	"github.com/modhost/modhost/pkg/resource"
)

type (
	// Summary is one row of the package listing.
	Summary struct {
		ID              guid.PackageID
		Name            string
		Version         string
		DisplayName     string
		DependencyCount int
		ResourceCount   int
	}

	// DependencyInfo describes one declared dependency and what satisfies it.
	DependencyInfo struct {
		Name       string
		MinVersion string
		// Loaded is the loaded version, empty when the package is absent.
		Loaded    string
		Satisfied bool
	}

	// ResourceInfo describes one resource record.
	ResourceInfo struct {
		GUID     guid.ResourceGUID
		Path     string
		Kind     resource.Kind
		Imported bool
		// Refs is the payload's reference count; above 1 means other records
		// share it.
		Refs int
	}

	// Detail is the full view of one package.
	Detail struct {
		Summary
		Description  string
		Dir          string
		ManifestPath string
		Authors      []modpack.Author
		Dependencies []DependencyInfo
		ProcessAfter []string
		Resources    []ResourceInfo
	}
)

// List returns a summary of every loaded package in processing order.
func (e *Engine) List() []Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	pkgs := e.reg.Packages()
	out := make([]Summary, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, summarize(p))
	}
	return out
}

// Describe returns the detail view of the named package.
func (e *Engine) Describe(name string) (Detail, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.reg.MustLookup(name)
	if err != nil {
		return Detail{}, err
	}

	d := Detail{
		Summary:      summarize(p),
		Description:  p.Description,
		Dir:          p.Dir,
		ManifestPath: p.ManifestPath,
		Authors:      p.Authors,
		ProcessAfter: p.ProcessAfter,
	}
	for _, dep := range p.Dependencies {
		info := DependencyInfo{Name: dep.Name, MinVersion: dep.MinVersion.String()}
		if loaded, ok := e.reg.Lookup(dep.Name); ok {
			info.Loaded = loaded.Version.String()
			info.Satisfied = loaded.Version.AtLeast(dep.MinVersion)
		}
		d.Dependencies = append(d.Dependencies, info)
	}
	for _, rec := range p.Resources() {
		info := ResourceInfo{GUID: rec.GUID, Path: rec.Path, Kind: rec.Kind, Imported: rec.Imported()}
		if h := rec.Handle(); h != nil {
			info.Refs = h.Refs()
		}
		d.Resources = append(d.Resources, info)
	}
	return d, nil
}

func summarize(p *modpack.Package) Summary {
	return Summary{
		ID:              p.ID(),
		Name:            string(p.Name),
		Version:         p.Version.String(),
		DisplayName:     p.DisplayName,
		DependencyCount: len(p.Dependencies),
		ResourceCount:   p.ResourceCount(),
	}
}
