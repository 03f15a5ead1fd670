// SPDX-License-Identifier: MPL-2.0

// Package config loads modhost settings with Viper, using CUE as the file
// format.
//
// Sources are applied in order: built-in defaults, an optional config.cue
// validated against the embedded #Config schema, then MODHOST_* environment
// variables (MODHOST_LOG_LEVEL overrides log.level). The file is looked up in
// the platform config directory (modhost/config.cue under $XDG_CONFIG_HOME,
// ~/Library/Application Support or %APPDATA%) and then in the working
// directory, unless an explicit path is given.
package config
