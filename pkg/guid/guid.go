// SPDX-License-Identifier: MPL-2.0

// Package guid derives the stable identifiers used to address packages and
// the resources they contain.
//
// A PackageID is a 32-bit hash of the lower-cased package name. A
// ResourceGUID packs the owning PackageID into its upper 32 bits and a 32-bit
// hash of the lower-cased package-relative path into its lower 32 bits, so
// the owner of any resource can be recovered without a lookup.
package guid

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

type (
	// PackageID identifies a package by the hash of its lower-cased name.
	PackageID uint32

	// ResourceGUID identifies a resource within the set of loaded packages.
	ResourceGUID uint64
)

// PackageIDOf returns the identifier for the named package. Names that differ
// only in case produce the same identifier.
func PackageIDOf(name string) PackageID {
	return PackageID(hash32(strings.ToLower(name)))
}

// ResourceGUIDOf returns the identifier of the resource at relPath inside the
// package identified by id. relPath is normalized before hashing: separators
// become forward slashes, the path is cleaned and leading "./" or "/" are
// dropped. Paths that differ only in case produce the same identifier.
func ResourceGUIDOf(id PackageID, relPath string) ResourceGUID {
	return ResourceGUID(uint64(id)<<32 | uint64(hash32(NormalizePath(relPath))))
}

// NormalizePath returns the canonical, lower-cased form of a package-relative
// path as it is fed to the hash.
func NormalizePath(relPath string) string {
	p := strings.ReplaceAll(relPath, "\\", "/")
	p = path.Clean("/" + p)
	return strings.ToLower(strings.TrimPrefix(p, "/"))
}

// Package returns the identifier of the package that owns the resource.
func (g ResourceGUID) Package() PackageID {
	return PackageID(g >> 32)
}

// PathHash returns the lower 32 bits, the hash of the relative path.
func (g ResourceGUID) PathHash() uint32 {
	return uint32(g)
}

// String renders the GUID as 16 lower-case hex digits.
func (g ResourceGUID) String() string {
	return fmt.Sprintf("%016x", uint64(g))
}

// String renders the identifier as 8 lower-case hex digits.
func (id PackageID) String() string {
	return fmt.Sprintf("%08x", uint32(id))
}

// ParseResourceGUID parses the hex form produced by ResourceGUID.String. An
// optional "0x" prefix is accepted.
func ParseResourceGUID(s string) (ResourceGUID, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" || len(trimmed) > 16 {
		return 0, fmt.Errorf("invalid resource GUID %q", s)
	}
	v, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid resource GUID %q: %w", s, err)
	}
	return ResourceGUID(v), nil
}

// hash32 folds the 64-bit xxhash digest of s into 32 bits.
func hash32(s string) uint32 {
	h := xxhash.Sum64String(s)
	return uint32(h) ^ uint32(h>>32)
}
