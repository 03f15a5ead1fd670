// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"errors"
	"fmt"

	"github.com/modhost/modhost/pkg/guid"
)

var (
	// ErrUnsupportedKind indicates no decoder is registered for a kind.
	ErrUnsupportedKind = errors.New("unsupported resource kind")

	// ErrNoValue is returned by decoders that recognise a file but produce
	// nothing from it. It is not a failure.
	ErrNoValue = errors.New("decoder produced no value")

	// ErrGUIDCollision indicates two paths in one package hash to the same
	// resource GUID.
	ErrGUIDCollision = errors.New("resource GUID collision")

	// ErrHandleReleased is returned when retaining a destroyed handle.
	ErrHandleReleased = errors.New("shared handle already released")
)

// CollisionError describes a GUID collision between two relative paths.
type CollisionError struct {
	GUID     guid.ResourceGUID
	Path     string
	Existing string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s collides with %s (GUID %s)", e.Path, e.Existing, e.GUID)
}

// Unwrap returns ErrGUIDCollision for errors.Is() compatibility.
func (e *CollisionError) Unwrap() error { return ErrGUIDCollision }
