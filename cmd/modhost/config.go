// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modhost/modhost/internal/config"
	"github.com/modhost/modhost/internal/issue"
)

// newConfigCommand creates the `modhost config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modhost configuration",
		Long: `Manage modhost configuration.

Configuration is stored in:
  - Linux: ~/.config/modhost/config.cue
  - macOS: ~/Library/Application Support/modhost/config.cue
  - Windows: %APPDATA%\modhost\config.cue

Every key can be overridden with a MODHOST_* environment variable, for
example MODHOST_MODS_DIR or MODHOST_LOG_LEVEL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			fmt.Fprintf(app.stdout, "Console host key: %s\n", filepath.Join(cfgDir, hostKeyFile))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlagValues) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render("dark"); renderErr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
		return reportError(app, flags, err)
	}

	w := app.stdout
	kv := func(key, value string) {
		fmt.Fprintf(w, "  %s: %s\n", KeyStyle.Render(key), SuccessStyle.Render(value))
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if cfg.Source != "" {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), cfg.Source)
	} else {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("mods_dir"), SuccessStyle.Render(cfg.ModsDir))

	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("log"))
	kv("level", cfg.Log.Level.String())
	kv("format", cfg.Log.Format.String())

	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("packages"))
	kv("disabled", listOrNone(cfg.Packages.Disabled))
	kv("revalidate_on_unload", fmt.Sprintf("%v", cfg.Packages.RevalidateOnUnload))

	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("watch"))
	kv("debounce", cfg.Watch.Debounce.String())
	kv("ignore", listOrNone(cfg.Watch.Ignore))

	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("console"))
	kv("host", cfg.Console.Host)
	kv("port", fmt.Sprintf("%d", cfg.Console.Port))
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
