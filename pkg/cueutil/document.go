// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Document formats understood by ParseDocument and DecodeDocument.
const (
	FormatCUE  Format = "cue"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for files whose extension maps to no
// known document format.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format names an on-disk document syntax.
type Format string

// FormatOf returns the document format for filename's extension. The
// comparison is case-insensitive. ok is false for unknown extensions.
func FormatOf(filename string) (format Format, ok bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cue":
		return FormatCUE, true
	case ".json":
		return FormatJSON, true
	case ".toml":
		return FormatTOML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// DecodeDocument parses a schema-less document into plain Go values
// (map[string]any, []any, string, bool and numbers). The format is selected
// from the extension of filename.
func DecodeDocument(filename string, data []byte, opts ...Option) (any, error) {
	format, ok := FormatOf(filename)
	if !ok {
		return nil, fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}
	v, err := CompileDocument(format, filename, data, opts...)
	if err != nil {
		return nil, err
	}

	var out any
	if err := v.Decode(&out); err != nil {
		return nil, FormatError(err, filename)
	}
	return out, nil
}

// CompileDocument returns the concrete CUE value of a document in the given
// format. Callers that walk fields themselves use it instead of decoding into
// a Go type.
func CompileDocument(format Format, filename string, data []byte, opts ...Option) (cue.Value, error) {
	options := applyOptions(opts)
	if options.filename == "" {
		options.filename = filename
	}
	if err := CheckFileSize(data, options.maxFileSize, options.filename); err != nil {
		return cue.Value{}, err
	}

	v, err := documentValue(cuecontext.New(), format, options.filename, data)
	if err != nil {
		return cue.Value{}, err
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, FormatError(err, options.filename)
	}
	return v, nil
}

// documentValue builds a CUE value for data in format. displayName is used
// in error messages.
func documentValue(ctx *cue.Context, format Format, displayName string, data []byte) (cue.Value, error) {
	var decoded any
	switch format {
	case FormatCUE, FormatJSON:
		v := ctx.CompileBytes(data, cue.Filename(displayName))
		if v.Err() != nil {
			return cue.Value{}, FormatError(v.Err(), displayName)
		}
		return v, nil
	case FormatTOML:
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return cue.Value{}, fmt.Errorf("%s: %w", displayName, err)
		}
		decoded = m
	case FormatYAML:
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			return cue.Value{}, fmt.Errorf("%s: %w", displayName, err)
		}
		if decoded == nil {
			decoded = map[string]any{}
		}
	default:
		return cue.Value{}, fmt.Errorf("%s: %w", displayName, ErrUnsupportedFormat)
	}

	v := ctx.Encode(decoded)
	if v.Err() != nil {
		return cue.Value{}, FormatError(v.Err(), displayName)
	}
	return v, nil
}
