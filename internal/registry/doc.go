// SPDX-License-Identifier: MPL-2.0

// Package registry holds the set of loaded packages keyed by package ID.
//
// It enforces name uniqueness, removes packages whose dependencies are not
// satisfied (cascading until a fixed point), and derives the processing
// sequence from ordering hints. The registry is not safe for concurrent use;
// the lifecycle engine serializes access to it.
package registry
