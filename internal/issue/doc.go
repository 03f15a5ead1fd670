// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error context for the modhost CLI.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. The issue catalog holds Markdown guidance for each
// lifecycle diagnostic, rendered with glamour when the CLI runs verbosely.
package issue
