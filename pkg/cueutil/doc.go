// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates structured documents against embedded CUE
// schemas.
//
// Every document goes through the same flow regardless of its on-disk
// format:
//
//  1. Compile the embedded schema
//  2. Produce a CUE value from the document and unify it with the schema
//  3. Validate and decode to a Go value
//
// CUE and JSON documents are compiled directly. TOML and YAML documents are
// decoded with go-toml and yaml.v3 first and then encoded into the same CUE
// context, so a closed schema rejects unknown keys identically for all
// formats.
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseDocument[Manifest](
//	    schemaBytes,
//	    "manifest.toml",
//	    data,
//	    "#Manifest",
//	)
//	if err != nil {
//	    return nil, err // includes the offending field path
//	}
//	return result.Value, nil
package cueutil
