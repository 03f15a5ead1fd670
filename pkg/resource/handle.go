// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"
	"sync"

	"github.com/modhost/modhost/pkg/guid"
)

type (
	// Releaser is implemented by payloads that hold resources needing an
	// explicit release when the last owner lets go.
	Releaser interface {
		Release() error
	}

	// Referrer is implemented by payloads that hold handles to payloads
	// imported by other records, e.g. a mesh holding its material.
	Referrer interface {
		References() []*Handle
	}

	// Handle is a reference-counted owner of one decoded payload. The record
	// that imported the payload holds the first reference; every record whose
	// payload refers to it holds one more.
	Handle struct {
		mu        sync.Mutex
		guid      guid.ResourceGUID
		kind      Kind
		value     any
		refs      int
		destroyed bool
	}
)

// NewHandle wraps value with one reference held by the importing record.
func NewHandle(id guid.ResourceGUID, kind Kind, value any) *Handle {
	return &Handle{guid: id, kind: kind, value: value, refs: 1}
}

// GUID returns the GUID of the record that imported the payload.
func (h *Handle) GUID() guid.ResourceGUID { return h.guid }

// Kind returns the payload's kind.
func (h *Handle) Kind() Kind { return h.kind }

// Value returns the payload, or nil once the handle is destroyed.
func (h *Handle) Value() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil
	}
	return h.value
}

// Refs returns the current reference count.
func (h *Handle) Refs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}

// Destroyed reports whether the payload has been released.
func (h *Handle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// Retain adds a reference.
func (h *Handle) Retain() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return fmt.Errorf("%s: %w", h.guid, ErrHandleReleased)
	}
	h.refs++
	return nil
}

// Release drops one reference and returns the number still held. The payload
// is not destroyed here; the owner of the liveness policy calls Destroy.
func (h *Handle) Release() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return 0, fmt.Errorf("%s: release without reference: %w", h.guid, ErrHandleReleased)
	}
	h.refs--
	return h.refs, nil
}

// Destroy releases the payload. It is idempotent; only the first call reaches
// the payload's Releaser.
func (h *Handle) Destroy() error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	value := h.value
	h.value = nil
	h.mu.Unlock()

	if r, ok := value.(Releaser); ok {
		return r.Release()
	}
	return nil
}

// ReferencesOf returns the handles held by a payload, or nil when the payload
// holds none.
func ReferencesOf(payload any) []*Handle {
	if r, ok := payload.(Referrer); ok {
		return r.References()
	}
	return nil
}
