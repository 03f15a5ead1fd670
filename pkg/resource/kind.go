// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"path/filepath"
	"slices"
	"strings"
)

// Resource kinds.
const (
	// KindNone marks files with no registered extension. Such records are
	// discovered but never produce a value.
	KindNone     Kind = "none"
	KindText     Kind = "text"
	KindData     Kind = "data"
	KindTexture  Kind = "texture"
	KindAudio    Kind = "audio"
	KindMaterial Kind = "material"
	KindMesh     Kind = "mesh"
	KindPrefab   Kind = "prefab"
)

// Kind tags a resource with the decoder family responsible for it.
type Kind string

var extensionKinds = map[string]Kind{
	".txt":      KindText,
	".md":       KindText,
	".json":     KindData,
	".yaml":     KindData,
	".yml":      KindData,
	".toml":     KindData,
	".cue":      KindData,
	".png":      KindTexture,
	".jpg":      KindTexture,
	".jpeg":     KindTexture,
	".gif":      KindTexture,
	".bmp":      KindTexture,
	".webp":     KindTexture,
	".wav":      KindAudio,
	".ogg":      KindAudio,
	".mp3":      KindAudio,
	".material": KindMaterial,
	".mesh":     KindMesh,
	".prefab":   KindPrefab,
}

// KindFor returns the kind registered for the extension of path, compared
// case-insensitively. Unknown extensions yield KindNone.
func KindFor(path string) Kind {
	if k, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return KindNone
}

// Extensions returns the sorted extensions that map to k.
func Extensions(k Kind) []string {
	var exts []string
	for ext, kind := range extensionKinds {
		if kind == k {
			exts = append(exts, ext)
		}
	}
	slices.Sort(exts)
	return exts
}

func (k Kind) String() string { return string(k) }
