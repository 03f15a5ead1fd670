// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/modhost/modhost/pkg/guid"
	"github.com/modhost/modhost/pkg/resource"
)

// Package is a loaded mod package: its manifest data plus the table of
// resource records discovered in its directory.
type Package struct {
	Name         Name
	Dir          string
	ManifestPath string
	Version      Version
	DisplayName  string
	Description  string
	Authors      []Author
	Dependencies []Dependency
	ProcessAfter []string

	resources map[guid.ResourceGUID]*resource.Record
	order     []guid.ResourceGUID
	// rejected holds the GUIDs whose discovery or import failed, with the
	// reason. They are not retried until the table is cleared.
	rejected map[guid.ResourceGUID]error
}

// Load reads the package in dir. Failures are reported as *LoadError with
// Kind set to ErrManifestMissing, ErrManifestMalformed, ErrInvalidName,
// ErrNameDirectoryMismatch or ErrDuplicateDependency.
func Load(dir string) (*Package, error) {
	p := &Package{Dir: dir}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the manifest and replaces the metadata in place. On error
// the package is left unchanged. The resource table is not touched.
func (p *Package) Reload() error {
	manifestPath, m, err := readManifest(p.Dir)
	if err != nil {
		return err
	}
	if p.Name != "" && m.Name != p.Name {
		return loadError(p.Dir, ErrNameDirectoryMismatch,
			fmt.Errorf("name changed from %q to %q", p.Name, m.Name))
	}

	p.Name = m.Name
	p.ManifestPath = manifestPath
	p.Version = m.Version
	p.DisplayName = m.DisplayName
	p.Description = m.Description
	p.Authors = m.Authors
	p.Dependencies = m.Dependencies
	p.ProcessAfter = m.ProcessAfter
	return nil
}

func readManifest(dir string) (string, *Manifest, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", nil, loadError(dir, ErrManifestMissing, err)
	}
	if !info.IsDir() {
		return "", nil, loadError(dir, ErrManifestMissing, fmt.Errorf("%s is not a directory", dir))
	}

	manifestPath, err := FindManifest(dir)
	if err != nil {
		if errors.Is(err, ErrManifestMissing) {
			return "", nil, loadError(dir, ErrManifestMissing, nil)
		}
		return "", nil, loadError(dir, ErrManifestMissing, err)
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", nil, loadError(dir, ErrManifestMalformed, err)
	}

	m, err := ParseManifest(manifestPath, data)
	if err != nil {
		return "", nil, loadError(dir, ErrManifestMalformed, err)
	}

	if err := m.Name.Validate(); err != nil {
		return "", nil, loadError(dir, ErrInvalidName, err)
	}

	dirName := filepath.Base(filepath.Clean(dir))
	if !strings.EqualFold(string(m.Name), dirName) {
		return "", nil, loadError(dir, ErrNameDirectoryMismatch,
			fmt.Errorf("manifest name %q, directory %q", m.Name, dirName))
	}

	if name, dup := m.duplicateDependency(); dup {
		return "", nil, loadError(dir, ErrDuplicateDependency, fmt.Errorf("%q listed more than once", name))
	}

	return manifestPath, m, nil
}

// ID returns the package identifier derived from its name.
func (p *Package) ID() guid.PackageID {
	return guid.PackageIDOf(string(p.Name))
}

// Dependency returns the declared dependency on name, if any.
func (p *Package) Dependency(name string) (Dependency, bool) {
	name = strings.ToLower(name)
	for _, d := range p.Dependencies {
		if d.Name == name {
			return d, true
		}
	}
	return Dependency{}, false
}

// AddResource inserts r into the resource table. A record whose GUID is
// already present is rejected with *resource.CollisionError.
func (p *Package) AddResource(r *resource.Record) error {
	if p.resources == nil {
		p.resources = make(map[guid.ResourceGUID]*resource.Record)
	}
	if existing, ok := p.resources[r.GUID]; ok {
		return &resource.CollisionError{GUID: r.GUID, Path: r.Path, Existing: existing.Path}
	}
	p.resources[r.GUID] = r
	p.order = append(p.order, r.GUID)
	return nil
}

// RemoveResource deletes the record with the given GUID and returns it.
func (p *Package) RemoveResource(id guid.ResourceGUID) (*resource.Record, bool) {
	r, ok := p.resources[id]
	if !ok {
		return nil, false
	}
	delete(p.resources, id)
	if i := slices.Index(p.order, id); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
	return r, true
}

// Resource looks up a record by GUID.
func (p *Package) Resource(id guid.ResourceGUID) (*resource.Record, bool) {
	r, ok := p.resources[id]
	return r, ok
}

// ResourceAt looks up a record by its package-relative path, ignoring case.
func (p *Package) ResourceAt(relPath string) (*resource.Record, bool) {
	return p.Resource(guid.ResourceGUIDOf(p.ID(), relPath))
}

// Resources returns the records in discovery order.
func (p *Package) Resources() []*resource.Record {
	out := make([]*resource.Record, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.resources[id])
	}
	return out
}

// ResourceCount returns the number of records in the table.
func (p *Package) ResourceCount() int {
	return len(p.resources)
}

// Reject records that the resource with the given GUID failed and must not
// be discovered or imported again.
func (p *Package) Reject(id guid.ResourceGUID, reason error) {
	if p.rejected == nil {
		p.rejected = make(map[guid.ResourceGUID]error)
	}
	p.rejected[id] = reason
}

// Rejected returns the reason recorded by Reject for the GUID, or nil.
func (p *Package) Rejected(id guid.ResourceGUID) error {
	return p.rejected[id]
}

// ClearResources empties the table, forgets rejected GUIDs and returns the
// removed records in discovery order.
func (p *Package) ClearResources() []*resource.Record {
	out := p.Resources()
	p.resources = nil
	p.order = nil
	p.rejected = nil
	return out
}
