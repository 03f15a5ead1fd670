// SPDX-License-Identifier: MPL-2.0

package decoders

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/modhost/modhost/pkg/cueutil"
	"github.com/modhost/modhost/pkg/resource"
)

// decodeText returns the file content as a string.
func decodeText(_ context.Context, req *resource.Request) (any, error) {
	data, err := content(req)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: not valid UTF-8: %w", req.Path, ErrUnrecognizedFormat)
	}
	return string(data), nil
}

// decodeData returns the document as plain Go values.
func decodeData(_ context.Context, req *resource.Request) (any, error) {
	data, err := content(req)
	if err != nil {
		return nil, err
	}
	return cueutil.DecodeDocument(req.Path, data)
}
