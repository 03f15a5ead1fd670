// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/modhost/modhost/internal/dag"
	"github.com/modhost/modhost/internal/registry"
	"github.com/modhost/modhost/pkg/guid"
	"github.com/modhost/modhost/pkg/modpack"
	"github.com/modhost/modhost/pkg/resource"
)

type (
	// Options configures an Engine.
	Options struct {
		// Root is the mods directory; each non-hidden subdirectory is a
		// package.
		Root string
		// Logger receives lifecycle events. nil uses slog.Default().
		Logger *slog.Logger
		// Disabled lists package directory names to skip, ignoring case.
		Disabled []string
		// RevalidateOnUnload re-runs dependency validation after
		// UnloadPackage, removing packages that depended on the unloaded one.
		RevalidateOnUnload bool
	}

	// Engine owns a registry and the decoders used to import resources.
	Engine struct {
		mu       sync.Mutex
		opts     Options
		logger   *slog.Logger
		reg      *registry.Registry
		decoders *resource.Dispatcher
	}
)

// New creates an engine around reg and decoders.
func New(reg *registry.Registry, decoders *resource.Dispatcher, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		opts:     opts,
		logger:   logger,
		reg:      reg,
		decoders: decoders,
	}
}

// Root returns the mods directory.
func (e *Engine) Root() string { return e.opts.Root }

// Start loads every package under Root and imports their resources.
func (e *Engine) Start(ctx context.Context) (Report, error) {
	rep, err := e.LoadAll(ctx)
	if err != nil {
		return rep, err
	}
	rep.Merge(e.ImportAll(ctx))
	return rep, nil
}

// LoadAll scans Root, loads and registers every package directory not yet
// registered, validates dependencies and recomputes the processing sequence.
// Resources are not imported. The returned error is non-nil only when Root
// itself cannot be read.
func (e *Engine) LoadAll(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	entries, err := os.ReadDir(e.opts.Root)
	if err != nil {
		return rep, fmt.Errorf("read mods directory %s: %w", e.opts.Root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		e.loadPackage(filepath.Join(e.opts.Root, entry.Name()), &rep)
	}

	e.revalidate(&rep)
	return rep, nil
}

// LoadPackage loads the package in dir, validates dependencies and imports
// its resources if it survived validation.
func (e *Engine) LoadPackage(ctx context.Context, dir string) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	p := e.loadPackage(dir, &rep)
	if p == nil {
		return rep, firstCause(rep)
	}
	e.revalidate(&rep)
	if _, ok := e.reg.Lookup(string(p.Name)); ok {
		pass := newImportPass()
		e.importPackage(ctx, p, pass)
		pass.finish(&rep)
	}
	return rep, nil
}

// loadPackage loads and registers dir. It returns nil when the directory
// was skipped or failed, recording why in rep.
func (e *Engine) loadPackage(dir string, rep *Report) *modpack.Package {
	base := filepath.Base(dir)
	if e.disabled(base) {
		rep.add(Diagnostic{
			Severity: SeverityInfo,
			Code:     CodePackageDisabled,
			Message:  fmt.Sprintf("package %s is disabled", base),
			Path:     dir,
		})
		return nil
	}

	if existing, ok := e.reg.Lookup(base); ok && sameDir(existing.Dir, dir) {
		return nil
	}

	p, err := modpack.Load(dir)
	if err != nil {
		e.logger.Warn("package load failed", "path", dir, "error", err)
		rep.add(Diagnostic{
			Severity: SeverityError,
			Code:     loadErrorCode(err),
			Message:  err.Error(),
			Path:     dir,
			Cause:    err,
		})
		return nil
	}

	if err := e.reg.Register(p); err != nil {
		e.logger.Warn("package registration rejected", "package", p.Name, "path", dir, "error", err)
		rep.add(Diagnostic{
			Severity: SeverityError,
			Code:     CodeDuplicateRegistration,
			Message:  err.Error(),
			Package:  string(p.Name),
			Path:     dir,
			Cause:    err,
		})
		return nil
	}

	e.logger.Debug("package registered", "package", p.Name, "version", p.Version.String(), "path", dir)
	rep.Loaded = append(rep.Loaded, string(p.Name))
	return p
}

// revalidate runs the dependency fixed point, disposes the resources of
// every removed package and recomputes the processing sequence.
func (e *Engine) revalidate(rep *Report) {
	vr := e.reg.ValidateDependencies()
	for _, rm := range vr.Removed {
		unmet := rm.Strings()
		e.logger.Warn("package removed: unmet dependencies", "package", rm.Package.Name, "unmet", unmet)
		rep.add(Diagnostic{
			Severity: SeverityError,
			Code:     CodeDependencyUnsatisfied,
			Message:  fmt.Sprintf("package %s removed, unmet dependencies: %s", rm.Package.Name, strings.Join(unmet, ", ")),
			Package:  string(rm.Package.Name),
			Path:     rm.Package.Dir,
		})
		e.disposePackage(rm.Package)
	}
	rep.Removed = append(rep.Removed, vr.Removed...)
	e.logger.Info("dependencies validated", "validated", vr.Validated, "failed", vr.Failed)
	e.resequence(rep)
}

func (e *Engine) resequence(rep *Report) {
	err := e.reg.RecalculateProcessingSequence()
	var cycle *dag.CycleError
	if errors.As(err, &cycle) {
		e.logger.Warn("processing order hints conflict", "packages", cycle.Cycle)
		rep.add(Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeProcessingOrderCycle,
			Message:  fmt.Sprintf("ordering hints form a cycle among %s; using best-effort order", strings.Join(cycle.Cycle, ", ")),
			Cause:    err,
		})
	}
}

func (e *Engine) disabled(dirName string) bool {
	return slices.ContainsFunc(e.opts.Disabled, func(n string) bool { return strings.EqualFold(n, dirName) })
}

// Sequence returns the package names in processing order.
func (e *Engine) Sequence() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Names()
}

// Resource returns the record with the given GUID among loaded packages.
func (e *Engine) Resource(id guid.ResourceGUID) (*resource.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.FindRecord(id)
}

// PackageDir returns the directory of the named loaded package.
func (e *Engine) PackageDir(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.reg.Lookup(name)
	if !ok {
		return "", false
	}
	return p.Dir, true
}

func loadErrorCode(err error) string {
	switch {
	case errors.Is(err, modpack.ErrManifestMissing):
		return CodeManifestMissing
	case errors.Is(err, modpack.ErrInvalidName):
		return CodeInvalidName
	case errors.Is(err, modpack.ErrNameDirectoryMismatch):
		return CodeNameDirectoryMismatch
	case errors.Is(err, modpack.ErrDuplicateDependency):
		return CodeDuplicateDependency
	default:
		return CodeManifestMalformed
	}
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// firstCause returns the cause of the first error diagnostic in rep.
func firstCause(rep Report) error {
	for _, d := range rep.Diagnostics {
		if d.Severity == SeverityError && d.Cause != nil {
			return d.Cause
		}
	}
	return nil
}
