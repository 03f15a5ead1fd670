// SPDX-License-Identifier: MPL-2.0

// Package engine drives the package lifecycle: scanning the mods directory,
// registering and validating packages, discovering and importing their
// resources in processing order, and unloading or reloading packages at
// runtime.
//
// Non-fatal problems (a package that failed to load, a resource that failed
// to import, an ordering cycle) are logged and returned as Diagnostic values
// in a Report; they never abort the surrounding operation.
//
// Every exported method takes the engine lock, so an Engine may be shared
// by the operator console and the file watcher.
package engine
