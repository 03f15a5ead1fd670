// SPDX-License-Identifier: MPL-2.0

// Package decoders provides the reference decoders installed by the modhost
// CLI. Each decoder turns one kind of resource file into a payload; material,
// mesh and prefab documents may reference other resources through the
// request's resolver, in which case their payloads keep the acquired handles.
package decoders
