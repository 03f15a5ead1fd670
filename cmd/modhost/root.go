// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/modhost/modhost/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the modhost command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "modhost",
		Short: "A runtime mod package loader",
		Long: TitleStyle.Render("modhost") + SubtitleStyle.Render(" - A runtime mod package loader") + `

modhost loads mod packages from a directory, validates their dependencies,
orders them by their processing hints and imports their resources. Packages
can be reloaded or unloaded at runtime, from the command line, by the file
watcher or over the SSH management console.

` + SubtitleStyle.Render("Examples:") + `
  modhost list                 List loaded packages
  modhost info core            Show one package and its resources
  modhost check                Report every loading problem
  modhost watch                Reload packages as their files change
  modhost serve --watch        Run the SSH console with live reloading`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/modhost/config.cue)")
	rootCmd.PersistentFlags().StringVar(&flags.modsDir, "mods", "", "mods directory (overrides mods_dir)")

	rootCmd.AddCommand(
		newListCommand(app, flags),
		newInfoCommand(app, flags),
		newCheckCommand(app, flags),
		newReloadCommand(app, flags),
		newUnloadCommand(app, flags),
		newWatchCommand(app, flags),
		newServeCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// errorHandler prints errors through fang unless the command already
// reported them and only asked for an exit code.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their Format method, which includes the error chain in verbose mode.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// reportError prints err to stderr with the catalog entry behind it when
// one exists. The returned ExitError carries no message so errorHandler stays
// quiet.
func reportError(app *App, flags *rootFlagValues, err error) error {
	fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, flags.verbose))

	var ae *issue.ActionableError
	if flags.verbose && errors.As(err, &ae) && ae.Issue != 0 {
		if entry := issue.Get(ae.Issue); entry != nil {
			if rendered, renderErr := entry.Render("dark"); renderErr == nil {
				fmt.Fprint(app.stderr, rendered)
			}
		}
	}
	return &ExitError{Code: 1}
}
