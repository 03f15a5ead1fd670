// SPDX-License-Identifier: MPL-2.0

package decoders

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/modhost/modhost/pkg/cueutil"
	"github.com/modhost/modhost/pkg/resource"
)

//go:embed schema.cue
var documentSchema []byte

type (
	// Mesh is triangle geometry with an optional shared material.
	Mesh struct {
		Vertices  [][]float64
		Triangles [][]int
		Material  *resource.Handle
	}

	// Prefab groups meshes and nested prefabs.
	Prefab struct {
		Name     string
		Children []*resource.Handle
	}

	meshDoc struct {
		Vertices  [][]float64 `json:"vertices"`
		Triangles [][]int     `json:"triangles,omitempty"`
		Material  string      `json:"material,omitempty"`
	}

	prefabDoc struct {
		Name     string   `json:"name,omitempty"`
		Children []string `json:"children"`
	}
)

// References returns the material handle, if any.
func (m *Mesh) References() []*resource.Handle {
	if m.Material == nil {
		return nil
	}
	return []*resource.Handle{m.Material}
}

// References returns the child handles.
func (p *Prefab) References() []*resource.Handle {
	return p.Children
}

func decodeMesh(ctx context.Context, req *resource.Request) (any, error) {
	data, err := content(req)
	if err != nil {
		return nil, err
	}
	result, err := cueutil.ParseAndDecode[meshDoc](documentSchema, data, "#Mesh",
		cueutil.WithFilename(req.Path), cueutil.WithConcrete(true))
	if err != nil {
		return nil, err
	}
	doc := result.Value

	for i, tri := range doc.Triangles {
		for _, idx := range tri {
			if idx >= len(doc.Vertices) {
				return nil, fmt.Errorf("%s: triangles[%d]: index %d out of range (%d vertices): %w",
					req.Path, i, idx, len(doc.Vertices), ErrInvalidProperty)
			}
		}
	}

	m := &Mesh{Vertices: doc.Vertices, Triangles: doc.Triangles}
	if doc.Material != "" {
		h, err := req.Resolver.Acquire(ctx, doc.Material)
		if err != nil {
			return nil, fmt.Errorf("%s: material: %w", req.Path, err)
		}
		if h.Kind() != resource.KindMaterial {
			return nil, fmt.Errorf("%s: material: %s is %s: %w", req.Path, doc.Material, h.Kind(), ErrReferenceKind)
		}
		m.Material = h
	}
	return m, nil
}

func decodePrefab(ctx context.Context, req *resource.Request) (any, error) {
	data, err := content(req)
	if err != nil {
		return nil, err
	}
	result, err := cueutil.ParseAndDecode[prefabDoc](documentSchema, data, "#Prefab",
		cueutil.WithFilename(req.Path), cueutil.WithConcrete(true))
	if err != nil {
		return nil, err
	}
	doc := result.Value

	p := &Prefab{Name: doc.Name}
	for _, ref := range doc.Children {
		h, err := req.Resolver.Acquire(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%s: child: %w", req.Path, err)
		}
		if k := h.Kind(); k != resource.KindMesh && k != resource.KindPrefab {
			return nil, fmt.Errorf("%s: child: %s is %s: %w", req.Path, ref, k, ErrReferenceKind)
		}
		p.Children = append(p.Children, h)
	}
	return p, nil
}
