// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"

	"github.com/modhost/modhost/pkg/cueutil"
)

// Author defaults used when a manifest omits the field.
const (
	UnknownAuthorName = "Unknown"
	UnknownAuthorInfo = "n/a"
)

var (
	//go:embed manifest_schema.cue
	manifestSchema []byte

	// ManifestFiles lists the accepted manifest file names in lookup order.
	ManifestFiles = []string{"manifest.cue", "manifest.json", "manifest.toml", "manifest.yaml", "manifest.yml"}
)

type (
	// Author credits one contributor.
	Author struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		URL   string `json:"url"`
	}

	// Dependency requires a package at MinVersion or newer.
	Dependency struct {
		Name       string
		MinVersion Version
	}

	// Manifest is the validated content of a manifest file.
	Manifest struct {
		Name         Name
		Version      Version
		DisplayName  string
		Description  string
		Authors      []Author
		Dependencies []Dependency
		ProcessAfter []string
	}

	// manifestDoc mirrors #Manifest for decoding. Dependencies are read from
	// the unified value because the field is either a struct or a list.
	manifestDoc struct {
		Name         string   `json:"name"`
		Version      string   `json:"version"`
		DisplayName  string   `json:"displayName,omitempty"`
		Description  string   `json:"description,omitempty"`
		Authors      []Author `json:"authors,omitempty"`
		ProcessAfter []string `json:"processAfter,omitempty"`
	}

	dependencyDoc struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
)

func (d Dependency) String() string {
	return fmt.Sprintf("%s: %s", d.Name, d.MinVersion)
}

// IsManifestFile reports whether name is one of ManifestFiles, ignoring case.
func IsManifestFile(name string) bool {
	for _, f := range ManifestFiles {
		if strings.EqualFold(name, f) {
			return true
		}
	}
	return false
}

// FindManifest returns the path of the first manifest file present in dir.
func FindManifest(dir string) (string, error) {
	for _, name := range ManifestFiles {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}
	}
	return "", ErrManifestMissing
}

// ParseManifest validates data against the manifest schema. filename selects
// the document format and appears in error messages. The returned error wraps
// ErrManifestMalformed; the name is not checked against the naming rule here.
func ParseManifest(filename string, data []byte) (*Manifest, error) {
	result, err := cueutil.ParseDocument[manifestDoc](manifestSchema, filepath.Base(filename), data, "#Manifest",
		cueutil.WithFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestMalformed, err)
	}
	doc := result.Value

	version, err := ParseVersion(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: version: %w", ErrManifestMalformed, filename, err)
	}

	deps, err := decodeDependencies(result.Unified.LookupPath(cue.ParsePath("dependencies")))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: dependencies: %w", ErrManifestMalformed, filename, err)
	}

	m := &Manifest{
		Name:         Name(doc.Name),
		Version:      version,
		DisplayName:  doc.DisplayName,
		Description:  doc.Description,
		Authors:      doc.Authors,
		Dependencies: deps,
	}
	if m.DisplayName == "" {
		m.DisplayName = doc.Name
	}
	for _, hint := range doc.ProcessAfter {
		m.ProcessAfter = append(m.ProcessAfter, strings.ToLower(hint))
	}
	return m, nil
}

// decodeDependencies accepts either {name: version} or [{name, version}].
func decodeDependencies(v cue.Value) ([]Dependency, error) {
	if !v.Exists() {
		return nil, nil
	}

	var docs []dependencyDoc
	switch v.Kind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		for iter.Next() {
			ver, err := iter.Value().String()
			if err != nil {
				return nil, err
			}
			docs = append(docs, dependencyDoc{Name: iter.Selector().Unquoted(), Version: ver})
		}
	case cue.ListKind:
		if err := v.Decode(&docs); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("expected struct or list, got %s", v.Kind())
	}

	deps := make([]Dependency, 0, len(docs))
	for i, d := range docs {
		name := strings.ToLower(d.Name)
		if !namePattern.MatchString(name) || len(name) > MaxNameLength {
			return nil, fmt.Errorf("[%d]: invalid package name %q", i, d.Name)
		}
		minVersion, err := ParseVersion(d.Version)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		deps = append(deps, Dependency{Name: name, MinVersion: minVersion})
	}
	return deps, nil
}

// duplicateDependency returns the first dependency name listed twice.
func (m *Manifest) duplicateDependency() (string, bool) {
	seen := make(map[string]struct{}, len(m.Dependencies))
	for _, d := range m.Dependencies {
		if _, dup := seen[d.Name]; dup {
			return d.Name, true
		}
		seen[d.Name] = struct{}{}
	}
	return "", false
}
