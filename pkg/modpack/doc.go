// SPDX-License-Identifier: MPL-2.0

// Package modpack loads mod packages from disk.
//
// A package is a directory holding a manifest (manifest.cue, manifest.json,
// manifest.toml or manifest.yaml) plus any number of resource files. The
// manifest names the package, gives its semantic version and optional
// metadata, and declares minimum-version dependencies and soft ordering
// hints on other packages. The directory name must equal the manifest name,
// compared case-insensitively.
//
// Package values also own the table of resource records discovered inside
// the directory; the lifecycle engine populates it.
package modpack
