// SPDX-License-Identifier: MPL-2.0

package packtest

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/modhost/modhost/internal/testutil"
)

type (
	// Fixture describes a package directory to write.
	Fixture struct {
		Dir          string
		Name         string
		Version      string
		Dependencies [][2]string
		ProcessAfter []string
		// Manifest, when set, is written verbatim instead of the generated one.
		Manifest     string
		ManifestFile string
		Files        map[string]string
	}

	// Option customizes a Fixture.
	Option func(*Fixture)
)

// Write creates root/<name> with a manifest.cue generated from the options
// and returns the package directory.
//
//	dir := packtest.Write(t, root, "foo",
//	    packtest.WithDependency("bar", "1.0.0"),
//	    packtest.WithFile("readme.txt", "hello"),
//	)
func Write(t testing.TB, root, name string, opts ...Option) string {
	t.Helper()

	f := &Fixture{
		Dir:          name,
		Name:         name,
		Version:      "1.0.0",
		ManifestFile: "manifest.cue",
		Files:        map[string]string{},
	}
	for _, opt := range opts {
		opt(f)
	}

	dir := filepath.Join(root, f.Dir)
	testutil.MustMkdirAll(t, dir)

	manifest := f.Manifest
	if manifest == "" {
		manifest = f.render()
	}
	testutil.MustWriteFile(t, filepath.Join(dir, f.ManifestFile), manifest)

	paths := make([]string, 0, len(f.Files))
	for p := range f.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		testutil.MustWriteFile(t, filepath.Join(dir, filepath.FromSlash(p)), f.Files[p])
	}
	return dir
}

// WithVersion sets the manifest version.
func WithVersion(v string) Option {
	return func(f *Fixture) { f.Version = v }
}

// WithDirectory writes the package into a directory named dir instead of
// the package name.
func WithDirectory(dir string) Option {
	return func(f *Fixture) { f.Dir = dir }
}

// WithDependency adds a minimum-version dependency.
func WithDependency(name, minVersion string) Option {
	return func(f *Fixture) { f.Dependencies = append(f.Dependencies, [2]string{name, minVersion}) }
}

// WithProcessAfter adds ordering hints.
func WithProcessAfter(names ...string) Option {
	return func(f *Fixture) { f.ProcessAfter = append(f.ProcessAfter, names...) }
}

// WithManifest writes content verbatim to filename instead of the generated
// manifest.cue.
func WithManifest(filename, content string) Option {
	return func(f *Fixture) {
		f.ManifestFile = filename
		f.Manifest = content
	}
}

// WithFile adds a resource file at the slash-separated relative path.
func WithFile(relPath, content string) Option {
	return func(f *Fixture) { f.Files[relPath] = content }
}

func (f *Fixture) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %q\n", f.Name)
	fmt.Fprintf(&b, "version: %q\n", f.Version)
	if len(f.Dependencies) > 0 {
		b.WriteString("dependencies: [\n")
		for _, d := range f.Dependencies {
			fmt.Fprintf(&b, "\t{name: %q, version: %q},\n", d[0], d[1])
		}
		b.WriteString("]\n")
	}
	if len(f.ProcessAfter) > 0 {
		quoted := make([]string, len(f.ProcessAfter))
		for i, n := range f.ProcessAfter {
			quoted[i] = fmt.Sprintf("%q", n)
		}
		fmt.Fprintf(&b, "processAfter: [%s]\n", strings.Join(quoted, ", "))
	}
	return b.String()
}
