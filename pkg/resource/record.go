// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"github.com/modhost/modhost/pkg/guid"
)

// Record is one resource of a package. It is created by discovery with no
// payload and becomes imported once a decoder produced a value for it.
type Record struct {
	// Owner identifies the package the record belongs to.
	Owner guid.PackageID
	// Package is the owning package's name.
	Package string
	// Path is the slash-separated path relative to the package directory,
	// with its on-disk casing.
	Path string
	Kind Kind
	GUID guid.ResourceGUID

	handle *Handle
}

// NewRecord creates an unimported record for relPath inside pkgName.
func NewRecord(pkgName, relPath string, kind Kind) *Record {
	owner := guid.PackageIDOf(pkgName)
	return &Record{
		Owner:   owner,
		Package: pkgName,
		Path:    relPath,
		Kind:    kind,
		GUID:    guid.ResourceGUIDOf(owner, relPath),
	}
}

// Imported reports whether the record carries a payload.
func (r *Record) Imported() bool { return r.handle != nil }

// Handle returns the record's payload handle, or nil before import.
func (r *Record) Handle() *Handle { return r.handle }

// Payload returns the decoded value, or nil before import.
func (r *Record) Payload() any {
	if r.handle == nil {
		return nil
	}
	return r.handle.Value()
}

// Attach stores the handle produced by import.
func (r *Record) Attach(h *Handle) { r.handle = h }

// Detach removes and returns the record's handle.
func (r *Record) Detach() *Handle {
	h := r.handle
	r.handle = nil
	return h
}
