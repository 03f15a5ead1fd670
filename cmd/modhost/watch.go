// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/internal/render"
	"github.com/modhost/modhost/internal/watch"
)

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Load packages and reload them as their files change",
		Long: `Load every package, then watch the mods directory. Changes are batched per
package directory; a changed package is reloaded, a new directory is loaded
and a deleted directory is unloaded. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, rep, err := app.startSession(cmd.Context(), flags)
			if err != nil {
				return reportError(app, flags, err)
			}
			fmt.Fprint(app.stdout, render.Report(rep))
			fmt.Fprintf(app.stdout, "\n%s Watching %s for changes (Ctrl+C to stop)...\n\n",
				HighlightStyle.Render("→"), s.engine.Root())

			w, err := newWatcher(app, s)
			if err != nil {
				return reportError(app, flags, issue.WrapWithContext(err, "watch mods directory", s.engine.Root()))
			}
			return w.Run(cmd.Context())
		},
	}
}

// newWatcher builds a watcher over the session's mods directory that
// refreshes changed packages and prints each outcome.
func newWatcher(app *App, s *session) (*watch.Watcher, error) {
	w, err := watch.New(watch.Config{
		Root:     s.engine.Root(),
		Debounce: s.cfg.Watch.Debounce,
		Ignore:   s.cfg.Watch.Ignore,
		Logger:   s.slog,
		OnChange: func(ctx context.Context, dirNames []string) error {
			fmt.Fprintf(app.stdout, "%s Detected changes in %s\n",
				HighlightStyle.Render("→"), strings.Join(dirNames, ", "))
			rep, err := s.engine.Refresh(ctx, dirNames)
			fmt.Fprint(app.stdout, render.Report(rep))
			if err != nil {
				fmt.Fprintf(app.stderr, "%s %v\n", WarningStyle.Render("!"), err)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	return w, nil
}
