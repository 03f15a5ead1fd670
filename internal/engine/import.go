// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/modhost/modhost/pkg/guid"
	"github.com/modhost/modhost/pkg/modpack"
	"github.com/modhost/modhost/pkg/resource"
)

type (
	// importPass accumulates outcomes across one import operation, including
	// records imported on demand in other packages.
	importPass struct {
		byPackage   map[string]*ImportStats
		order       []string
		diagnostics []Diagnostic
		inProgress  map[guid.ResourceGUID]bool
	}

	// resolver is handed to decoders; it tracks every handle it gave out so
	// a failed decode can return them.
	resolver struct {
		engine   *Engine
		pkg      *modpack.Package
		pass     *importPass
		acquired []*resource.Handle
	}
)

func newImportPass() *importPass {
	return &importPass{
		byPackage:  make(map[string]*ImportStats),
		inProgress: make(map[guid.ResourceGUID]bool),
	}
}

func (p *importPass) stats(pkg string) *ImportStats {
	s, ok := p.byPackage[pkg]
	if !ok {
		s = &ImportStats{Package: pkg}
		p.byPackage[pkg] = s
		p.order = append(p.order, pkg)
	}
	return s
}

func (p *importPass) add(d Diagnostic) {
	p.diagnostics = append(p.diagnostics, d)
}

func (p *importPass) finish(rep *Report) {
	for _, name := range p.order {
		rep.Imports = append(rep.Imports, *p.byPackage[name])
	}
	rep.Diagnostics = append(rep.Diagnostics, p.diagnostics...)
}

// ImportAll discovers and imports the resources of every loaded package in
// processing order. Resources already imported are left alone and resources
// that failed are not retried until their package is reloaded, so calling
// it twice imports and reports nothing the second time.
func (e *Engine) ImportAll(ctx context.Context) Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	pass := newImportPass()
	for _, p := range e.reg.Packages() {
		e.importPackage(ctx, p, pass)
	}
	pass.finish(&rep)
	return rep
}

// ImportPackage discovers and imports the resources of one loaded package.
func (e *Engine) ImportPackage(ctx context.Context, name string) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	p, err := e.reg.MustLookup(name)
	if err != nil {
		return rep, err
	}
	pass := newImportPass()
	e.importPackage(ctx, p, pass)
	pass.finish(&rep)
	return rep, nil
}

func (e *Engine) importPackage(ctx context.Context, p *modpack.Package, pass *importPass) {
	e.discover(p, pass)

	for _, rec := range p.Resources() {
		if _, ok := p.Resource(rec.GUID); !ok || rec.Imported() {
			// Failed or already imported on demand.
			continue
		}
		_ = e.importRecord(ctx, p, rec, pass) //nolint:errcheck // outcome recorded in pass
	}

	s := pass.stats(string(p.Name))
	e.logger.Info("package imported", "package", p.Name,
		"imported", s.Imported, "failed", s.Failed, "skipped", s.Skipped)
}

// importRecord decodes rec and attaches its payload. On failure the record
// is removed from the package and the outcome is recorded in pass.
func (e *Engine) importRecord(ctx context.Context, p *modpack.Package, rec *resource.Record, pass *importPass) error {
	if rec.Imported() {
		return nil
	}
	if pass.inProgress[rec.GUID] {
		return fmt.Errorf("%s:%s: %w", p.Name, rec.Path, ErrCircularReference)
	}
	pass.inProgress[rec.GUID] = true
	defer delete(pass.inProgress, rec.GUID)

	res := &resolver{engine: e, pkg: p, pass: pass}
	full := filepath.Join(p.Dir, filepath.FromSlash(rec.Path))
	req := &resource.Request{
		Package:  string(p.Name),
		Path:     rec.Path,
		Kind:     rec.Kind,
		GUID:     rec.GUID,
		Open:     func() (io.ReadCloser, error) { return os.Open(full) },
		Resolver: res,
	}

	stats := pass.stats(string(p.Name))
	value, err := e.decoders.Decode(ctx, req)
	if err == nil && value == nil {
		err = resource.ErrNoValue
	}
	if err != nil {
		res.releaseAll()
		p.RemoveResource(rec.GUID)
		p.Reject(rec.GUID, err)
		if errors.Is(err, resource.ErrNoValue) {
			stats.Skipped++
			e.logger.Debug("resource produced no value", "package", p.Name, "path", rec.Path, "kind", rec.Kind)
			pass.add(Diagnostic{
				Severity: SeverityInfo,
				Code:     CodeResourceNoValue,
				Message:  fmt.Sprintf("%s produced no value", rec.Path),
				Package:  string(p.Name),
				Path:     full,
			})
			return err
		}
		stats.Failed++
		e.logger.Warn("resource import failed", "package", p.Name, "path", rec.Path, "error", err)
		pass.add(Diagnostic{
			Severity: SeverityError,
			Code:     CodeResourceImportFailed,
			Message:  fmt.Sprintf("import %s: %v", rec.Path, err),
			Package:  string(p.Name),
			Path:     full,
			Cause:    err,
		})
		return err
	}

	// Handles the decoder acquired but did not keep in its payload are
	// returned now.
	kept := resource.ReferencesOf(value)
	for _, h := range res.acquired {
		if !slices.Contains(kept, h) {
			e.releaseHandle(h)
		}
	}

	rec.Attach(resource.NewHandle(rec.GUID, rec.Kind, value))
	stats.Imported++
	return nil
}

// Acquire resolves ref ("path" in the requesting package or "package:path"),
// importing the target first if it was discovered but not yet imported, and
// returns its handle with one reference held by the caller.
func (r *resolver) Acquire(ctx context.Context, ref string) (*resource.Handle, error) {
	target, relPath, err := r.split(ref)
	if err != nil {
		return nil, err
	}

	rec, ok := target.ResourceAt(relPath)
	if !ok {
		if reason := target.Rejected(guid.ResourceGUIDOf(target.ID(), relPath)); reason != nil {
			return nil, fmt.Errorf("resolve %q: %w: %v", ref, ErrResourceRejected, reason)
		}
		if rec, ok = r.engine.discoverOne(target, relPath); !ok {
			return nil, fmt.Errorf("resolve %q: %w", ref, ErrResourceNotFound)
		}
	}
	if !rec.Imported() {
		if err := r.engine.importRecord(ctx, target, rec, r.pass); err != nil {
			return nil, resolveError(ref, err)
		}
	}

	h := rec.Handle()
	if err := h.Retain(); err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}
	r.acquired = append(r.acquired, h)
	return h, nil
}

// resolveError wraps the failure of a referenced resource. A target that
// produced no value is a rejection for the referrer, not an empty result of
// its own.
func resolveError(ref string, err error) error {
	if errors.Is(err, resource.ErrNoValue) {
		return fmt.Errorf("resolve %q: %w: %v", ref, ErrResourceRejected, err)
	}
	return fmt.Errorf("resolve %q: %w", ref, err)
}

func (r *resolver) split(ref string) (*modpack.Package, string, error) {
	pkgName, relPath, qualified := strings.Cut(ref, ":")
	if !qualified {
		return r.pkg, ref, nil
	}
	if pkgName == "" || relPath == "" {
		return nil, "", fmt.Errorf("%q: %w", ref, ErrInvalidReference)
	}
	target, ok := r.engine.reg.Lookup(pkgName)
	if !ok {
		return nil, "", fmt.Errorf("resolve %q: package %s not loaded: %w", ref, pkgName, ErrResourceNotFound)
	}
	return target, relPath, nil
}

func (r *resolver) releaseAll() {
	for _, h := range r.acquired {
		r.engine.releaseHandle(h)
	}
	r.acquired = nil
}
