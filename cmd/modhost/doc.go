// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for modhost.
//
// The root command loads configuration, builds the lifecycle engine over the
// configured mods directory and hands it to the subcommands: inspection
// (list, info, check), lifecycle operations (reload, unload), live reloading
// (watch) and the SSH management console (serve).
package cmd
