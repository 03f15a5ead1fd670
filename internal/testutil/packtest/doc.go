// SPDX-License-Identifier: MPL-2.0

// Package packtest writes mod package fixtures for tests.
package packtest
