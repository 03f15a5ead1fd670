// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/modhost/modhost/internal/engine"
	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/internal/registry"
	"github.com/modhost/modhost/internal/render"
)

// lifecycleOp is one engine operation run by reload and unload.
type lifecycleOp func(ctx context.Context, e *engine.Engine) (engine.Report, error)

func newListCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded packages in processing order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, rep, err := app.startSession(cmd.Context(), flags)
			if err != nil {
				return reportError(app, flags, err)
			}
			if len(rep.Diagnostics) > 0 {
				fmt.Fprint(app.stderr, render.Diagnostics(rep.Diagnostics))
			}
			fmt.Fprint(app.stdout, render.Packages(s.engine.List()))
			return nil
		},
	}
}

func newInfoCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>",
		Short: "Show a package with its dependencies and resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := app.startSession(cmd.Context(), flags)
			if err != nil {
				return reportError(app, flags, err)
			}
			d, err := s.engine.Describe(args[0])
			if err != nil {
				return reportError(app, flags, packageError(err, "describe package", args[0]))
			}
			fmt.Fprint(app.stdout, render.Detail(d))
			return nil
		},
	}
}

func newCheckCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load every package and report all problems",
		Long: `Load every package, import its resources and report every diagnostic.

The command exits with status 1 when any error-level diagnostic was produced.
With --verbose each distinct problem is followed by its explanation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, rep, err := app.startSession(cmd.Context(), flags)
			if err != nil {
				return reportError(app, flags, err)
			}
			fmt.Fprint(app.stdout, render.Report(rep))
			if flags.verbose {
				explainDiagnostics(app, rep.Diagnostics)
			}
			if rep.HasErrors() {
				return &ExitError{Code: 1}
			}
			fmt.Fprintf(app.stdout, "%s %d packages loaded\n", SuccessStyle.Render("✓"), len(s.engine.Sequence()))
			return nil
		},
	}
}

func newReloadCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reload <package> | --all",
		Short: "Reload a package, or every package, from disk",
		Args:  packageOrAll(&all),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return runLifecycle(cmd.Context(), app, flags, "reload all packages", "", func(ctx context.Context, e *engine.Engine) (engine.Report, error) {
					return e.ReloadAll(ctx)
				})
			}
			return runLifecycle(cmd.Context(), app, flags, "reload package", args[0], func(ctx context.Context, e *engine.Engine) (engine.Report, error) {
				return e.ReloadPackage(ctx, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reload every package")
	return cmd
}

func newUnloadCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "unload <package> | --all",
		Short: "Unload a package, or every package, and release its resources",
		Args:  packageOrAll(&all),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return runLifecycle(cmd.Context(), app, flags, "unload all packages", "", func(ctx context.Context, e *engine.Engine) (engine.Report, error) {
					return e.UnloadAll(ctx)
				})
			}
			return runLifecycle(cmd.Context(), app, flags, "unload package", args[0], func(ctx context.Context, e *engine.Engine) (engine.Report, error) {
				return e.UnloadPackage(ctx, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "unload every package")
	return cmd
}

// packageOrAll accepts exactly one package name, or none with --all.
func packageOrAll(all *bool) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		switch {
		case *all && len(args) > 0:
			return errors.New("a package name cannot be combined with --all")
		case !*all && len(args) != 1:
			return errors.New("requires a package name or --all")
		}
		return nil
	}
}

// runLifecycle starts a session, applies op and prints its report followed
// by the packages still loaded. A failure is reported under operation.
func runLifecycle(ctx context.Context, app *App, flags *rootFlagValues, operation, name string, op lifecycleOp) error {
	s, _, err := app.startSession(ctx, flags)
	if err != nil {
		return reportError(app, flags, err)
	}
	rep, err := op(ctx, s.engine)
	if out := render.Report(rep); out != "" {
		fmt.Fprint(app.stdout, out)
	}
	if err != nil {
		return reportError(app, flags, packageError(err, operation, name))
	}
	fmt.Fprint(app.stdout, render.Packages(s.engine.List()))
	return nil
}

// packageError wraps err with the operation that failed. Unknown-package
// errors also get suggestions.
func packageError(err error, operation, name string) error {
	if !errors.Is(err, registry.ErrPackageNotFound) {
		return issue.WrapWithContext(err, operation, name)
	}
	return issue.NewErrorContext().
		WithOperation(operation).
		WithResource(name).
		WithSuggestion("Run 'modhost list' to see the loaded packages").
		WithSuggestion("Run 'modhost check' to see why a package failed to load").
		WithIssue(issue.PackageNotFoundId).
		Wrap(err).
		BuildError()
}

// explainDiagnostics renders the catalog entry for each distinct diagnostic
// code, in order of first appearance.
func explainDiagnostics(app *App, diags []engine.Diagnostic) {
	var seen []string
	for _, d := range diags {
		if slices.Contains(seen, d.Code) {
			continue
		}
		seen = append(seen, d.Code)
		entry, ok := issue.ForCode(d.Code)
		if !ok {
			continue
		}
		rendered, err := entry.Render("dark")
		if err != nil {
			continue
		}
		fmt.Fprint(app.stdout, rendered)
	}
}
