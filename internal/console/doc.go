// SPDX-License-Identifier: MPL-2.0

// Package console serves an SSH operator console for a running host.
//
// Operators authenticate with the session token printed at startup and
// either run a single command (ssh -p 2222 host list) or open an interactive
// prompt. Commands list, inspect, reload and unload packages through an
// Operator, normally an *engine.Engine.
package console
