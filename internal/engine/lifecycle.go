// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modhost/modhost/internal/registry"
	"github.com/modhost/modhost/pkg/modpack"
)

// UnloadPackage disposes the named package's resources and unregisters it.
// With RevalidateOnUnload set, packages left with unmet dependencies are
// removed as well; otherwise only the processing sequence is recomputed.
func (e *Engine) UnloadPackage(ctx context.Context, name string) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	p, err := e.reg.MustLookup(name)
	if err != nil {
		return rep, err
	}

	e.unloadPackage(p, &rep)
	if e.opts.RevalidateOnUnload {
		e.revalidate(&rep)
	} else {
		e.resequence(&rep)
	}
	return rep, nil
}

// UnloadAll unloads every package, leaving the registry empty. Dependents
// are unloaded before the packages they depend on; otherwise the reverse
// processing order is used.
func (e *Engine) UnloadAll(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	for _, p := range e.reg.TeardownOrder() {
		e.unloadPackage(p, &rep)
	}
	e.resequence(&rep)
	return rep, nil
}

func (e *Engine) unloadPackage(p *modpack.Package, rep *Report) {
	e.reg.Unregister(p.ID())
	e.disposePackage(p)
	rep.Unloaded = append(rep.Unloaded, string(p.Name))
	e.logger.Info("package unloaded", "package", p.Name)
}

// ReloadPackage re-reads the named package's manifest, re-validates
// dependencies, recomputes the processing sequence and, if the package is
// still loaded, disposes and re-imports its resources. A manifest that no
// longer loads unloads the package and is returned as the error.
func (e *Engine) ReloadPackage(ctx context.Context, name string) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	p, err := e.reg.MustLookup(name)
	if err != nil {
		return rep, err
	}
	err = e.reloadPackage(ctx, p, &rep)
	return rep, err
}

// ReloadAll applies ReloadPackage to every loaded package in processing
// order. Packages removed by an earlier reload in the same call are skipped.
func (e *Engine) ReloadAll(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	var errs []error
	for _, name := range e.reg.Names() {
		p, ok := e.reg.Lookup(name)
		if !ok {
			continue
		}
		if err := e.reloadPackage(ctx, p, &rep); err != nil {
			errs = append(errs, err)
		}
	}
	return rep, errors.Join(errs...)
}

func (e *Engine) reloadPackage(ctx context.Context, p *modpack.Package, rep *Report) error {
	if err := p.Reload(); err != nil {
		e.logger.Warn("package reload failed; unloading", "package", p.Name, "error", err)
		rep.add(Diagnostic{
			Severity: SeverityError,
			Code:     loadErrorCode(err),
			Message:  err.Error(),
			Package:  string(p.Name),
			Path:     p.Dir,
			Cause:    err,
		})
		e.unloadPackage(p, rep)
		e.revalidate(rep)
		return fmt.Errorf("reload %s: %w", p.Name, err)
	}

	e.revalidate(rep)
	if _, ok := e.reg.Lookup(string(p.Name)); !ok {
		// Removed by validation; its resources are already disposed.
		return nil
	}

	e.disposePackage(p)
	pass := newImportPass()
	e.importPackage(ctx, p, pass)
	pass.finish(rep)
	e.logger.Info("package reloaded", "package", p.Name, "version", p.Version.String())
	return nil
}

// Refresh reconciles the registry with the named package directories under
// Root. A registered package whose directory is gone is unloaded, a
// registered package is reloaded, and a new directory is loaded and
// imported. Names are directory names, not package names.
func (e *Engine) Refresh(ctx context.Context, dirNames []string) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	var errs []error
	for _, name := range dirNames {
		dir := filepath.Join(e.opts.Root, name)
		p := e.packageInDir(dir)
		_, statErr := os.Stat(dir)

		switch {
		case statErr != nil && p != nil:
			e.unloadPackage(p, &rep)
			if e.opts.RevalidateOnUnload {
				e.revalidate(&rep)
			} else {
				e.resequence(&rep)
			}
		case statErr != nil:
			e.logger.Debug("refresh ignored missing directory", "path", dir)
		case p != nil:
			if err := e.reloadPackage(ctx, p, &rep); err != nil {
				errs = append(errs, err)
			}
		default:
			loaded := e.loadPackage(dir, &rep)
			if loaded == nil {
				continue
			}
			e.revalidate(&rep)
			if _, ok := e.reg.Lookup(string(loaded.Name)); ok {
				pass := newImportPass()
				e.importPackage(ctx, loaded, pass)
				pass.finish(&rep)
			}
		}
	}
	return rep, errors.Join(errs...)
}

// packageInDir returns the registered package loaded from dir.
func (e *Engine) packageInDir(dir string) *modpack.Package {
	for _, p := range e.reg.Packages() {
		if strings.EqualFold(filepath.Base(p.Dir), filepath.Base(dir)) && sameDir(filepath.Dir(p.Dir), filepath.Dir(dir)) {
			return p
		}
	}
	return nil
}

// Validate re-runs dependency validation and sequencing without touching
// manifests.
func (e *Engine) Validate() Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	e.revalidate(&rep)
	return rep
}

// Unmet returns the unmet dependencies of a loaded package. It is empty for
// every package after validation; callers use it for display.
func (e *Engine) Unmet(name string) ([]registry.Unmet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.reg.MustLookup(name)
	if err != nil {
		return nil, err
	}
	return e.reg.Unmet(p), nil
}
