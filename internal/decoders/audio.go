// SPDX-License-Identifier: MPL-2.0

package decoders

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"path"
	"strings"

	"github.com/modhost/modhost/pkg/resource"
)

// Audio formats recognised by decodeAudio.
const (
	AudioWAV = "wav"
	AudioOgg = "ogg"
	AudioMP3 = "mp3"
)

// Audio holds an encoded sound file. Channels and SampleRate are only known
// for WAV files.
type Audio struct {
	Format     string
	Channels   int
	SampleRate int
	Data       []byte
}

// Release drops the encoded bytes.
func (a *Audio) Release() error {
	a.Data = nil
	return nil
}

func decodeAudio(_ context.Context, req *resource.Request) (any, error) {
	data, err := content(req)
	if err != nil {
		return nil, err
	}

	want := strings.TrimPrefix(strings.ToLower(path.Ext(req.Path)), ".")
	got := sniffAudio(data)
	if got == "" || got != want {
		return nil, fmt.Errorf("%s: content is not %s: %w", req.Path, want, ErrUnrecognizedFormat)
	}

	a := &Audio{Format: got, Data: data}
	if got == AudioWAV {
		if err := readWAVFormat(data, a); err != nil {
			return nil, fmt.Errorf("%s: %w", req.Path, err)
		}
	}
	return a, nil
}

func sniffAudio(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return AudioWAV
	case bytes.HasPrefix(data, []byte("OggS")):
		return AudioOgg
	case bytes.HasPrefix(data, []byte("ID3")):
		return AudioMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG frame sync.
		return AudioMP3
	default:
		return ""
	}
}

// readWAVFormat walks the RIFF chunks after the WAVE tag looking for "fmt ".
func readWAVFormat(data []byte, a *Audio) error {
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if id == "fmt " {
			if size < 16 || body+16 > len(data) {
				return fmt.Errorf("truncated fmt chunk: %w", ErrUnrecognizedFormat)
			}
			a.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			a.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			return nil
		}
		// Chunks are padded to even sizes.
		off = body + size + size%2
	}
	return fmt.Errorf("missing fmt chunk: %w", ErrUnrecognizedFormat)
}
