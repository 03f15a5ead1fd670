// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"github.com/modhost/modhost/pkg/modpack"
	"github.com/modhost/modhost/pkg/resource"
)

// disposePackage releases every record of p. Callers remove p from the
// registry (or its records from the table) first, so the liveness scan only
// sees packages that stay loaded.
func (e *Engine) disposePackage(p *modpack.Package) {
	for _, rec := range p.ClearResources() {
		e.disposeRecord(rec)
	}
}

func (e *Engine) disposeRecord(rec *resource.Record) {
	if h := rec.Detach(); h != nil {
		e.releaseHandle(h)
	}
}

// releaseHandle drops one reference. The payload is destroyed only when the
// count reaches zero and no loaded record still refers to it; destroying a
// payload releases the handles it held in turn.
func (e *Engine) releaseHandle(h *resource.Handle) {
	remaining, err := h.Release()
	if err != nil {
		e.logger.Error("shared payload over-released", "guid", h.GUID().String(), "error", err)
		return
	}
	if remaining > 0 {
		e.logger.Debug("shared payload retained", "guid", h.GUID().String(), "refs", remaining)
		return
	}

	if referrers := e.reg.Referrers(h); len(referrers) > 0 {
		paths := make([]string, len(referrers))
		for i, r := range referrers {
			paths[i] = r.Package + ":" + r.Path
		}
		e.logger.Error("shared payload still referenced at zero count; keeping it",
			"code", CodeSharedPayloadReferenced, "guid", h.GUID().String(), "referrers", paths)
		return
	}

	children := resource.ReferencesOf(h.Value())
	if err := h.Destroy(); err != nil {
		e.logger.Warn("payload release failed", "guid", h.GUID().String(), "error", err)
	}
	e.logger.Debug("shared payload released", "guid", h.GUID().String(), "kind", h.Kind())
	for _, c := range children {
		e.releaseHandle(c)
	}
}
