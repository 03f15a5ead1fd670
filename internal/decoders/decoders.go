// SPDX-License-Identifier: MPL-2.0

package decoders

import (
	"errors"
	"fmt"

	"github.com/modhost/modhost/pkg/resource"
)

var (
	// ErrUnknownProperty is returned for a document key the decoder does not
	// assign.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrInvalidProperty is returned for a known key with an unusable value.
	ErrInvalidProperty = errors.New("invalid property value")
	// ErrUnrecognizedFormat is returned when the file content does not match
	// the format implied by its extension.
	ErrUnrecognizedFormat = errors.New("unrecognized file format")
	// ErrReferenceKind is returned when a reference resolves to a resource
	// of a kind the referencing document cannot hold.
	ErrReferenceKind = errors.New("referenced resource has the wrong kind")
)

// Register installs every reference decoder on d.
func Register(d *resource.Dispatcher) {
	d.Register(resource.KindText, resource.DecoderFunc(decodeText))
	d.Register(resource.KindData, resource.DecoderFunc(decodeData))
	d.Register(resource.KindTexture, resource.DecoderFunc(decodeTexture))
	d.Register(resource.KindAudio, resource.DecoderFunc(decodeAudio))
	d.Register(resource.KindMaterial, resource.DecoderFunc(decodeMaterial))
	d.Register(resource.KindMesh, resource.DecoderFunc(decodeMesh))
	d.Register(resource.KindPrefab, resource.DecoderFunc(decodePrefab))
}

// NewDispatcher returns a dispatcher with every reference decoder installed.
func NewDispatcher() *resource.Dispatcher {
	d := resource.NewDispatcher()
	Register(d)
	return d
}

// content reads the request body. An empty file produces no value.
func content(req *resource.Request) ([]byte, error) {
	data, err := req.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Path, err)
	}
	if len(data) == 0 {
		return nil, resource.ErrNoValue
	}
	return data, nil
}

func propertyError(key string, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", key, fmt.Sprintf(format, args...), ErrInvalidProperty)
}
