// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

type (
	// Version is a parsed semantic version. The "v" prefix is optional in
	// manifests; "1" and "1.2" are shorthands for "1.0.0" and "1.2.0".
	Version struct {
		raw       string
		canonical string
	}

	// InvalidVersionError is returned for strings that are not semantic
	// versions. It wraps ErrInvalidVersion.
	InvalidVersionError struct {
		Value string
	}
)

// ParseVersion parses s.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	v := trimmed
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return Version{}, &InvalidVersionError{Value: s}
	}
	return Version{raw: strings.TrimPrefix(trimmed, "v"), canonical: semver.Canonical(v)}, nil
}

// MustParseVersion is ParseVersion that panics on error. For tests and
// constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as written, without a "v" prefix.
func (v Version) String() string { return v.raw }

// Canonical returns the full "vMAJOR.MINOR.PATCH[-pre]" form.
func (v Version) Canonical() string { return v.canonical }

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return v.canonical == "" }

// Compare returns -1, 0 or +1 as v is less than, equal to or greater than o.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.canonical, o.canonical)
}

// AtLeast reports whether v satisfies minimum.
func (v Version) AtLeast(minimum Version) bool {
	return v.Compare(minimum) >= 0
}

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid semantic version %q", e.Value)
}

// Unwrap returns ErrInvalidVersion.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }
