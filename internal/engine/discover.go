// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/modhost/modhost/pkg/modpack"
	"github.com/modhost/modhost/pkg/resource"
)

// discover walks the package directory and adds a record for every regular
// file of a known kind not yet in the resource table. Hidden entries, the
// manifest at the package root and rejected GUIDs are skipped. A file whose
// GUID is taken by another path is a collision: the first path keeps the
// GUID and the later one is dropped and rejected.
func (e *Engine) discover(p *modpack.Package, pass *importPass) {
	stats := pass.stats(string(p.Name))

	walkErr := filepath.WalkDir(p.Dir, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			pass.add(Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeScanFailed,
				Message:  fmt.Sprintf("cannot read %s: %v", full, err),
				Package:  string(p.Name),
				Path:     full,
				Cause:    err,
			})
			if d != nil && d.IsDir() && full != p.Dir {
				return filepath.SkipDir
			}
			return nil
		}
		if full == p.Dir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(p.Dir, full)
		if relErr != nil {
			return nil //nolint:nilerr // unreachable for paths produced by the walk
		}
		rel = filepath.ToSlash(rel)
		if !strings.Contains(rel, "/") && modpack.IsManifestFile(rel) {
			return nil
		}

		kind := resource.KindFor(rel)
		if kind == resource.KindNone {
			return nil
		}
		rec := resource.NewRecord(string(p.Name), rel, kind)
		if existing, ok := p.Resource(rec.GUID); ok && existing.Path == rel {
			return nil
		}
		if p.Rejected(rec.GUID) != nil {
			return nil
		}
		if addErr := p.AddResource(rec); addErr != nil {
			p.Reject(rec.GUID, addErr)
			stats.Failed++
			e.logger.Warn("resource GUID collision", "package", p.Name, "path", rel, "error", addErr)
			var collision *resource.CollisionError
			existing := ""
			if errors.As(addErr, &collision) {
				existing = collision.Existing
			}
			pass.add(Diagnostic{
				Severity: SeverityError,
				Code:     CodeGUIDCollision,
				Message:  fmt.Sprintf("%s collides with %s in package %s", rel, existing, p.Name),
				Package:  string(p.Name),
				Path:     full,
				Cause:    addErr,
			})
		}
		return nil
	})
	if walkErr != nil {
		pass.add(Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeScanFailed,
			Message:  fmt.Sprintf("scan of %s stopped: %v", p.Dir, walkErr),
			Package:  string(p.Name),
			Path:     p.Dir,
			Cause:    walkErr,
		})
	}
}

// discoverOne adds the record for a single file of p that discovery has not
// reached yet, such as a resource of a package later in the processing
// sequence. It applies the same skip rules as discover, rejected GUIDs
// included.
func (e *Engine) discoverOne(p *modpack.Package, relPath string) (*resource.Record, bool) {
	rel := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	if rel == "." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return nil, false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return nil, false
		}
	}
	if !strings.Contains(rel, "/") && modpack.IsManifestFile(rel) {
		return nil, false
	}

	kind := resource.KindFor(rel)
	if kind == resource.KindNone {
		return nil, false
	}
	info, err := os.Stat(filepath.Join(p.Dir, filepath.FromSlash(rel)))
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}

	rec := resource.NewRecord(string(p.Name), rel, kind)
	if p.Rejected(rec.GUID) != nil {
		return nil, false
	}
	if err := p.AddResource(rec); err != nil {
		return nil, false
	}
	e.logger.Debug("resource discovered on demand", "package", p.Name, "path", rel)
	return rec, true
}
