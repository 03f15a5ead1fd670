// SPDX-License-Identifier: MPL-2.0

// Package resource defines the unit of content owned by a package: the
// Record, the Kind tag derived from a file extension, the Decoder boundary
// that turns file bytes into a payload, and the shared-ownership Handle that
// carries payloads referenced by more than one record.
package resource
