// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modhost/modhost/internal/config"
	"github.com/modhost/modhost/internal/console"
	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/internal/render"
)

// hostKeyFile is the console host key kept in the config directory.
const hostKeyFile = "console_host_key"

type serveFlagValues struct {
	host        string
	port        int
	token       string
	hostKeyPath string
	watch       bool
}

func newServeCommand(app *App, flags *rootFlagValues) *cobra.Command {
	sf := &serveFlagValues{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SSH management console",
		Long: `Load every package and serve the management console over SSH.

Operators log in as user "operator" with the token printed at startup and
run the same commands as the CLI: list, info, reload, unload, import and
validate. With --watch the file watcher runs alongside the console.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), app, flags, sf)
		},
	}
	cmd.Flags().StringVar(&sf.host, "host", "", "listen address (overrides console.host)")
	cmd.Flags().IntVar(&sf.port, "port", 0, "listen port (overrides console.port)")
	cmd.Flags().StringVar(&sf.token, "token", "", "login token (default is a random token per run)")
	cmd.Flags().StringVar(&sf.hostKeyPath, "host-key", "", "SSH host key file (default is in the config directory)")
	cmd.Flags().BoolVar(&sf.watch, "watch", false, "reload packages as their files change")
	return cmd
}

func runServe(ctx context.Context, app *App, flags *rootFlagValues, sf *serveFlagValues) error {
	s, rep, err := app.startSession(ctx, flags)
	if err != nil {
		return reportError(app, flags, err)
	}
	fmt.Fprint(app.stdout, render.Report(rep))

	consoleCfg := console.Config{
		Host:        s.cfg.Console.Host,
		Port:        s.cfg.Console.Port,
		Token:       sf.token,
		HostKeyPath: sf.hostKeyPath,
		Logger:      s.logger.WithPrefix("console"),
	}
	if sf.host != "" {
		consoleCfg.Host = sf.host
	}
	if sf.port != 0 {
		consoleCfg.Port = sf.port
	}
	if consoleCfg.HostKeyPath == "" {
		consoleCfg.HostKeyPath = defaultHostKeyPath(s)
	}

	srv, err := console.New(consoleCfg, s.engine)
	if err != nil {
		return reportError(app, flags, issue.WrapWithContext(err, "create console", s.cfg.Console.Addr()))
	}
	if err := srv.Start(ctx); err != nil {
		return reportError(app, flags, issue.NewErrorContext().
			WithOperation("start console").
			WithResource(s.cfg.Console.Addr()).
			WithSuggestion("Choose another port with --port or console.port").
			WithSuggestion("Check that the host key file is readable").
			WithIssue(issue.ConsoleStartFailedId).
			Wrap(err).
			BuildError())
	}
	defer func() {
		if stopErr := srv.Stop(); stopErr != nil {
			s.logger.Warn("console shutdown failed", "error", stopErr)
		}
	}()

	fmt.Fprintf(app.stdout, "%s Console listening on %s\n", SuccessStyle.Render("✓"), srv.Address())
	fmt.Fprintf(app.stdout, "  %s %s\n", KeyStyle.Render("user: "), console.User)
	fmt.Fprintf(app.stdout, "  %s %s\n", KeyStyle.Render("token:"), srv.Token())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	if sf.watch {
		w, err := newWatcher(app, s)
		if err != nil {
			return reportError(app, flags, issue.WrapWithContext(err, "watch mods directory", s.engine.Root()))
		}
		go func() { watchErr <- w.Run(ctx) }()
		fmt.Fprintf(app.stdout, "%s Watching %s for changes\n", HighlightStyle.Render("→"), s.engine.Root())
	}

	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-srv.Err():
		if ok && err != nil {
			return reportError(app, flags, err)
		}
		return nil
	case err := <-watchErr:
		if err != nil {
			return reportError(app, flags, err)
		}
		return nil
	}
}

// defaultHostKeyPath keeps the host key next to the config file so clients
// see a stable key across runs. An empty result makes the console generate
// an ephemeral key.
func defaultHostKeyPath(s *session) string {
	dir, err := config.ConfigDir()
	if err != nil {
		s.logger.Warn("no config directory, using an ephemeral host key", "error", err)
		return ""
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		s.logger.Warn("cannot create config directory, using an ephemeral host key", "path", dir, "error", err)
		return ""
	}
	return filepath.Join(dir, hostKeyFile)
}
