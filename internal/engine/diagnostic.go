// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"slices"

	"github.com/modhost/modhost/internal/registry"
)

const (
	// SeverityInfo marks expected outcomes worth surfacing, such as a
	// disabled package.
	SeverityInfo Severity = "info"
	// SeverityWarning indicates a recoverable problem.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a package or resource that could not be used.
	SeverityError Severity = "error"
)

// Diagnostic codes.
const (
	CodeManifestMissing         = "manifest_missing"
	CodeManifestMalformed       = "manifest_malformed"
	CodeInvalidName             = "invalid_name"
	CodeNameDirectoryMismatch   = "name_directory_mismatch"
	CodeDuplicateDependency     = "duplicate_dependency"
	CodeDuplicateRegistration   = "duplicate_registration"
	CodeDependencyUnsatisfied   = "dependency_unsatisfied"
	CodeProcessingOrderCycle    = "processing_order_cycle"
	CodeResourceImportFailed    = "resource_import_failed"
	CodeResourceNoValue         = "resource_no_value"
	CodeGUIDCollision           = "guid_collision"
	CodePackageDisabled         = "package_disabled"
	CodeScanFailed              = "scan_failed"
	CodeSharedPayloadReferenced = "shared_payload_referenced"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic is a structured, non-fatal problem returned to callers
	// rather than printed, so each front end decides how to render it.
	Diagnostic struct {
		Severity Severity
		// Code is a machine-readable identifier, one of the Code* constants.
		Code    string
		Message string
		// Package is the package name involved, when known.
		Package string
		// Path is the file or directory involved (optional).
		Path string
		// Cause is the underlying error (optional).
		Cause error
	}

	// ImportStats counts the outcome of one package's import pass.
	ImportStats struct {
		Package  string
		Imported int
		Failed   int
		// Skipped counts resources whose decoder produced no value.
		Skipped int
	}

	// Report is the outcome of a lifecycle operation.
	Report struct {
		// Loaded lists packages newly registered.
		Loaded []string
		// Removed lists packages unregistered because of unmet dependencies.
		Removed []registry.Removal
		// Imports lists per-package import counts in processing order.
		Imports []ImportStats
		// Unloaded lists packages unloaded explicitly.
		Unloaded    []string
		Diagnostics []Diagnostic
	}
)

// HasErrors reports whether any diagnostic has SeverityError.
func (r *Report) HasErrors() bool {
	return slices.ContainsFunc(r.Diagnostics, func(d Diagnostic) bool { return d.Severity == SeverityError })
}

// Merge appends other's contents to r.
func (r *Report) Merge(other Report) {
	r.Loaded = append(r.Loaded, other.Loaded...)
	r.Removed = append(r.Removed, other.Removed...)
	r.Imports = append(r.Imports, other.Imports...)
	r.Unloaded = append(r.Unloaded, other.Unloaded...)
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
}

// Totals sums the import counts.
func (r *Report) Totals() ImportStats {
	var t ImportStats
	for _, s := range r.Imports {
		t.Imported += s.Imported
		t.Failed += s.Failed
		t.Skipped += s.Skipped
	}
	return t
}

func (r *Report) add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}
