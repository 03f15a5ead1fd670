// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"errors"
	"fmt"
)

var (
	// ErrManifestMissing is returned when a package directory holds no manifest.
	ErrManifestMissing = errors.New("manifest missing")

	// ErrManifestMalformed is returned when the manifest cannot be parsed or
	// does not satisfy the manifest schema.
	ErrManifestMalformed = errors.New("manifest malformed")

	// ErrInvalidName is returned when the manifest name breaks the naming rule.
	ErrInvalidName = errors.New("invalid package name")

	// ErrNameDirectoryMismatch is returned when the manifest name differs from
	// the directory name.
	ErrNameDirectoryMismatch = errors.New("package name does not match directory")

	// ErrDuplicateDependency is returned when a manifest lists the same
	// dependency twice.
	ErrDuplicateDependency = errors.New("duplicate dependency")

	// ErrInvalidVersion is returned for unparsable version strings. Load
	// reports it as a malformed manifest.
	ErrInvalidVersion = errors.New("invalid version")
)

// LoadError reports why a package directory could not be loaded. errors.Is
// matches both Kind (one of the Err* sentinels of this package) and the
// underlying cause.
type LoadError struct {
	Dir  string
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load package %s: %v", e.Dir, e.Kind)
	}
	return fmt.Sprintf("load package %s: %v: %v", e.Dir, e.Kind, e.Err)
}

// Unwrap returns the kind sentinel and the cause.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func loadError(dir string, kind, cause error) *LoadError {
	return &LoadError{Dir: dir, Kind: kind, Err: cause}
}
