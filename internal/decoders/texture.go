// SPDX-License-Identifier: MPL-2.0

package decoders

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/modhost/modhost/pkg/resource"
)

// Texture describes an image file. Pixel data is left to the host.
type Texture struct {
	Format string
	Width  int
	Height int
}

func decodeTexture(_ context.Context, req *resource.Request) (any, error) {
	data, err := content(req)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", req.Path, ErrUnrecognizedFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%s: empty image %dx%d: %w", req.Path, cfg.Width, cfg.Height, ErrUnrecognizedFormat)
	}
	return &Texture{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
