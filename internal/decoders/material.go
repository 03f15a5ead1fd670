// SPDX-License-Identifier: MPL-2.0

package decoders

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue"

	"github.com/modhost/modhost/pkg/cueutil"
	"github.com/modhost/modhost/pkg/resource"
)

type (
	// Material is a surface description. Texture, when set, is a handle to a
	// texture resource that the material keeps alive.
	Material struct {
		Shader      string
		Color       [4]float64
		Texture     *resource.Handle
		Metallic    float64
		Smoothness  float64
		DoubleSided bool
	}

	materialSetter func(ctx context.Context, req *resource.Request, m *Material, v cue.Value) error
)

// DefaultShader is used by materials that do not name one.
const DefaultShader = "standard"

// materialSetters is the complete set of assignable material properties.
var materialSetters = map[string]materialSetter{
	"shader":      setShader,
	"color":       setColor,
	"texture":     setTexture,
	"metallic":    unitSetter(func(m *Material, f float64) { m.Metallic = f }),
	"smoothness":  unitSetter(func(m *Material, f float64) { m.Smoothness = f }),
	"doubleSided": setDoubleSided,
}

// References returns the texture handle, if any.
func (m *Material) References() []*resource.Handle {
	if m.Texture == nil {
		return nil
	}
	return []*resource.Handle{m.Texture}
}

// decodeMaterial reads a CUE (or JSON) document of material properties.
// Every key is checked against materialSetters before any value is applied.
func decodeMaterial(ctx context.Context, req *resource.Request) (any, error) {
	data, err := content(req)
	if err != nil {
		return nil, err
	}
	doc, err := cueutil.CompileDocument(cueutil.FormatCUE, req.Path, data)
	if err != nil {
		return nil, err
	}
	if doc.Kind() != cue.StructKind {
		return nil, fmt.Errorf("%s: expected a struct, got %s: %w", req.Path, doc.Kind(), ErrInvalidProperty)
	}

	type field struct {
		key   string
		value cue.Value
	}
	var fields []field
	var unknown []string
	iter, err := doc.Fields()
	if err != nil {
		return nil, cueutil.FormatError(err, req.Path)
	}
	for iter.Next() {
		key := iter.Selector().Unquoted()
		if _, ok := materialSetters[key]; !ok {
			unknown = append(unknown, key)
			continue
		}
		fields = append(fields, field{key: key, value: iter.Value()})
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, fmt.Errorf("%s: %s: %w", req.Path, strings.Join(unknown, ", "), ErrUnknownProperty)
	}

	m := &Material{Shader: DefaultShader, Color: [4]float64{1, 1, 1, 1}, Smoothness: 0.5}
	for _, f := range fields {
		if err := materialSetters[f.key](ctx, req, m, f.value); err != nil {
			return nil, fmt.Errorf("%s: %w", req.Path, err)
		}
	}
	return m, nil
}

func setShader(_ context.Context, _ *resource.Request, m *Material, v cue.Value) error {
	s, err := v.String()
	if err != nil || strings.TrimSpace(s) == "" {
		return propertyError("shader", "want a non-empty string")
	}
	m.Shader = s
	return nil
}

// setColor accepts "#rrggbb", "#rrggbbaa" or a list of three or four
// components in [0, 1].
func setColor(_ context.Context, _ *resource.Request, m *Material, v cue.Value) error {
	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String() //nolint:errcheck // kind checked
		c, ok := parseHexColor(s)
		if !ok {
			return propertyError("color", "%q is not #rrggbb or #rrggbbaa", s)
		}
		m.Color = c
		return nil
	case cue.ListKind:
		var comps []float64
		if err := v.Decode(&comps); err != nil || len(comps) < 3 || len(comps) > 4 {
			return propertyError("color", "want 3 or 4 numbers")
		}
		c := [4]float64{0, 0, 0, 1}
		for i, f := range comps {
			if f < 0 || f > 1 {
				return propertyError("color", "component %d out of range [0, 1]", i)
			}
			c[i] = f
		}
		m.Color = c
		return nil
	default:
		return propertyError("color", "want a string or a list, got %s", v.Kind())
	}
}

func parseHexColor(s string) ([4]float64, bool) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return [4]float64{}, false
	}
	c := [4]float64{0, 0, 0, 1}
	for i := 0; i*2 < len(hex); i++ {
		b, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return [4]float64{}, false
		}
		c[i] = float64(b) / 255
	}
	return c, true
}

func setTexture(ctx context.Context, req *resource.Request, m *Material, v cue.Value) error {
	ref, err := v.String()
	if err != nil || ref == "" {
		return propertyError("texture", "want a resource reference")
	}
	h, err := req.Resolver.Acquire(ctx, ref)
	if err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	if h.Kind() != resource.KindTexture {
		return fmt.Errorf("texture: %s is %s: %w", ref, h.Kind(), ErrReferenceKind)
	}
	m.Texture = h
	return nil
}

func unitSetter(assign func(*Material, float64)) materialSetter {
	return func(_ context.Context, _ *resource.Request, m *Material, v cue.Value) error {
		f, err := v.Float64()
		if err != nil || f < 0 || f > 1 {
			return propertyError(v.Path().String(), "want a number in [0, 1]")
		}
		assign(m, f)
		return nil
	}
}

func setDoubleSided(_ context.Context, _ *resource.Request, m *Material, v cue.Value) error {
	b, err := v.Bool()
	if err != nil {
		return propertyError("doubleSided", "want a boolean")
	}
	m.DoubleSided = b
	return nil
}
