// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/modhost/modhost/pkg/guid"
)

type (
	// Resolver looks up other resources while a decoder runs. ref is either
	// a path inside the requesting package or "package:path". The returned
	// handle carries a reference owned by the caller.
	Resolver interface {
		Acquire(ctx context.Context, ref string) (*Handle, error)
	}

	// Request is everything a decoder gets to see about one resource.
	Request struct {
		Package string
		Path    string
		Kind    Kind
		GUID    guid.ResourceGUID
		// Open returns a fresh reader over the resource's bytes.
		Open     func() (io.ReadCloser, error)
		Resolver Resolver
	}

	// Decoder turns a resource's bytes into a payload. Returning ErrNoValue
	// marks the resource as recognised but empty.
	Decoder interface {
		Decode(ctx context.Context, req *Request) (any, error)
	}

	// DecoderFunc adapts a function to Decoder.
	DecoderFunc func(ctx context.Context, req *Request) (any, error)

	// Dispatcher routes requests to the decoder registered for their kind.
	Dispatcher struct {
		decoders map[Kind]Decoder
	}
)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, req *Request) (any, error) {
	return f(ctx, req)
}

// ReadAll reads the full resource content.
func (r *Request) ReadAll() ([]byte, error) {
	rc, err := r.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only
	return io.ReadAll(rc)
}

// NewDispatcher returns a dispatcher with no decoders.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{decoders: make(map[Kind]Decoder)}
}

// Register installs dec for kind, replacing any previous decoder.
func (d *Dispatcher) Register(kind Kind, dec Decoder) {
	d.decoders[kind] = dec
}

// Has reports whether a decoder is registered for kind.
func (d *Dispatcher) Has(kind Kind) bool {
	_, ok := d.decoders[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (d *Dispatcher) Kinds() []Kind {
	return slices.Sorted(maps.Keys(d.decoders))
}

// Decode runs the decoder for req.Kind. KindNone yields ErrNoValue; a known
// kind without a decoder yields ErrUnsupportedKind.
func (d *Dispatcher) Decode(ctx context.Context, req *Request) (any, error) {
	if req.Kind == KindNone {
		return nil, ErrNoValue
	}
	dec, ok := d.decoders[req.Kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", req.Kind, ErrUnsupportedKind)
	}
	return dec.Decode(ctx, req)
}
