// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error,
// reducing boilerplate in filesystem-heavy tests.
//
// Package fixtures (manifest plus resource files) are built with the
// packtest subpackage.
package testutil
