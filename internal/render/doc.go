// SPDX-License-Identifier: MPL-2.0

// Package render formats engine views and reports for terminals. The CLI and
// the SSH console share it so both print the same layout.
package render
