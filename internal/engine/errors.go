// SPDX-License-Identifier: MPL-2.0

package engine

import "errors"

var (
	// ErrCircularReference is returned when resolving a resource that is
	// itself still being imported further up the resolution chain.
	ErrCircularReference = errors.New("circular resource reference")

	// ErrResourceNotFound is returned when a reference names no discovered
	// resource of a loaded package.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrResourceRejected is returned when a reference names a resource
	// whose discovery or import already failed. It is not retried until the
	// package is reloaded.
	ErrResourceRejected = errors.New("resource rejected")

	// ErrInvalidReference is returned for malformed "package:path" strings.
	ErrInvalidReference = errors.New("invalid resource reference")
)
