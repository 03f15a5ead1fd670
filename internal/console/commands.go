// SPDX-License-Identifier: MPL-2.0

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/modhost/modhost/internal/engine"
	"github.com/modhost/modhost/internal/render"
)

var (
	// ErrUnknownCommand is returned for command names the console does not
	// define.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is returned when a command's arguments are wrong.
	ErrUsage = errors.New("usage")
)

type (
	// Operator is the set of host operations the console exposes.
	// *engine.Engine implements it.
	Operator interface {
		List() []engine.Summary
		Describe(name string) (engine.Detail, error)
		Start(ctx context.Context) (engine.Report, error)
		ReloadPackage(ctx context.Context, name string) (engine.Report, error)
		ReloadAll(ctx context.Context) (engine.Report, error)
		UnloadPackage(ctx context.Context, name string) (engine.Report, error)
		UnloadAll(ctx context.Context) (engine.Report, error)
		ImportAll(ctx context.Context) engine.Report
		Validate() engine.Report
	}

	command struct {
		name    string
		usage   string
		summary string
		run     func(ctx context.Context, ops Operator, out io.Writer, args []string) error
	}

	// UsageError names the command whose arguments were rejected.
	UsageError struct {
		Usage string
	}
)

// Error implements the error interface.
func (e *UsageError) Error() string { return "usage: " + e.Usage }

// Unwrap returns ErrUsage.
func (e *UsageError) Unwrap() error { return ErrUsage }

// commands is ordered for help output. It is filled in init because help
// and usage read it back.
var commands []command

func init() {
	commands = []command{
		{"list", "list", "list loaded packages in processing order", runList},
		{"info", "info <package>", "show a package's manifest, dependencies and resources", runInfo},
		{"load", "load", "load new package directories and import their resources", runLoad},
		{"reload", "reload <package>|--all", "re-read manifests and re-import resources", runReload},
		{"unload", "unload <package>|--all", "unload packages and release their resources", runUnload},
		{"import", "import", "import resources not imported yet", runImport},
		{"validate", "validate", "re-run dependency validation", runValidate},
		{"help", "help", "show this help", runHelp},
	}
}

// Execute runs one console command, writing its output to out. Errors from
// the operation itself are returned after any partial report is written.
func Execute(ctx context.Context, ops Operator, out io.Writer, args []string) error {
	if len(args) == 0 {
		return &UsageError{Usage: "<command> [args]; try help"}
	}
	for _, c := range commands {
		if c.name == strings.ToLower(args[0]) {
			return c.run(ctx, ops, out, args[1:])
		}
	}
	return fmt.Errorf("%q: %w", args[0], ErrUnknownCommand)
}

func usage(name string) error {
	for _, c := range commands {
		if c.name == name {
			return &UsageError{Usage: c.usage}
		}
	}
	return &UsageError{Usage: name}
}

func runList(_ context.Context, ops Operator, out io.Writer, args []string) error {
	if len(args) != 0 {
		return usage("list")
	}
	_, err := io.WriteString(out, render.Packages(ops.List()))
	return err
}

func runInfo(_ context.Context, ops Operator, out io.Writer, args []string) error {
	if len(args) != 1 {
		return usage("info")
	}
	d, err := ops.Describe(args[0])
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, render.Detail(d))
	return err
}

func runLoad(ctx context.Context, ops Operator, out io.Writer, args []string) error {
	if len(args) != 0 {
		return usage("load")
	}
	rep, err := ops.Start(ctx)
	if _, werr := io.WriteString(out, render.Report(rep)); werr != nil && err == nil {
		err = werr
	}
	return err
}

func runReload(ctx context.Context, ops Operator, out io.Writer, args []string) error {
	return applyToPackages(ctx, out, args, "reload", ops.ReloadAll, ops.ReloadPackage)
}

func runUnload(ctx context.Context, ops Operator, out io.Writer, args []string) error {
	return applyToPackages(ctx, out, args, "unload", ops.UnloadAll, ops.UnloadPackage)
}

func applyToPackages(
	ctx context.Context,
	out io.Writer,
	args []string,
	name string,
	all func(context.Context) (engine.Report, error),
	one func(context.Context, string) (engine.Report, error),
) error {
	if len(args) != 1 {
		return usage(name)
	}
	var (
		rep engine.Report
		err error
	)
	if args[0] == "--all" {
		rep, err = all(ctx)
	} else {
		rep, err = one(ctx, args[0])
	}
	if _, werr := io.WriteString(out, render.Report(rep)); werr != nil && err == nil {
		err = werr
	}
	return err
}

func runImport(ctx context.Context, ops Operator, out io.Writer, args []string) error {
	if len(args) != 0 {
		return usage("import")
	}
	_, err := io.WriteString(out, render.Report(ops.ImportAll(ctx)))
	return err
}

func runValidate(_ context.Context, ops Operator, out io.Writer, args []string) error {
	if len(args) != 0 {
		return usage("validate")
	}
	rep := ops.Validate()
	text := render.Report(rep)
	if text == "" {
		text = render.SuccessStyle.Render("✓") + " all dependencies satisfied\n"
	}
	_, err := io.WriteString(out, text)
	return err
}

func runHelp(_ context.Context, _ Operator, out io.Writer, _ []string) error {
	var b strings.Builder
	b.WriteString(render.TitleStyle.Render("Commands") + "\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %s %s\n", render.NameStyle.Render(fmt.Sprintf("%-24s", c.usage)), c.summary)
	}
	fmt.Fprintf(&b, "  %s %s\n", render.NameStyle.Render(fmt.Sprintf("%-24s", "exit")), "close an interactive session")
	_, err := io.WriteString(out, b.String())
	return err
}
