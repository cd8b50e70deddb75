// Package imagecodec is the Image Payload Codec (C5): it lets image
// nodes be first-class rows without a separate blob store, encoding
// raw bytes into a text-safe representation carried inside the node's
// metadata payload. Grounded on spec.md §4.5 and
// original_source/src/lib.rs's ImageNode/ImageMetadata field shape
// (no teacher file covers this; the teacher product has no image
// support).
package imagecodec

import (
	"encoding/base64"
	"fmt"

	"github.com/mycelicmemory/docstore/internal/docerr"
)

// metadataKey is the reserved metadata key the encoded bytes live
// under (spec.md §4.5: "placed in the metadata payload under a
// reserved key").
const metadataKey = "_image_data"

// Image is the caller-facing image payload attached to nodes of type
// "image".
type Image struct {
	Bytes    []byte
	Filename string
	MimeType string
	Width    int
	Height   int
	EXIF     map[string]string
}

// envelope is the on-disk shape stored under metadataKey; encoding/json
// handles its own string-safety, base64 handles the byte-safety of the
// payload itself.
type envelope struct {
	Data     string            `json:"data"`
	Filename string            `json:"filename,omitempty"`
	MimeType string            `json:"mime_type,omitempty"`
	Width    int               `json:"width,omitempty"`
	Height   int               `json:"height,omitempty"`
	EXIF     map[string]string `json:"exif,omitempty"`
}

// Encode returns a metadata map with the image payload embedded under
// the reserved key, merged over any caller-supplied metadata. The
// round-trip through Decode is byte-identical.
func Encode(img Image, extra map[string]any) map[string]any {
	env := envelope{
		Data:     base64.StdEncoding.EncodeToString(img.Bytes),
		Filename: img.Filename,
		MimeType: img.MimeType,
		Width:    img.Width,
		Height:   img.Height,
		EXIF:     img.EXIF,
	}

	meta := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		meta[k] = v
	}
	meta[metadataKey] = env
	return meta
}

// Decode extracts the Image payload from a node's metadata value, as
// produced by schema.RowToNode (an any holding the json.Unmarshal
// result of the stored metadata).
func Decode(metadata any) (Image, error) {
	m, ok := metadata.(map[string]any)
	if !ok {
		return Image{}, docerr.New("decode_image", docerr.KindInvalidInput, fmt.Errorf("metadata is not an object"))
	}
	raw, ok := m[metadataKey]
	if !ok {
		return Image{}, docerr.New("decode_image", docerr.KindInvalidInput, fmt.Errorf("metadata has no %s key", metadataKey))
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return Image{}, docerr.New("decode_image", docerr.KindCorrupt, fmt.Errorf("%s is not an object", metadataKey))
	}

	dataStr, _ := fields["data"].(string)
	bytes, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return Image{}, docerr.New("decode_image", docerr.KindCorrupt, fmt.Errorf("decode image bytes: %w", err))
	}

	img := Image{
		Bytes:    bytes,
		Filename: stringField(fields, "filename"),
		MimeType: stringField(fields, "mime_type"),
		Width:    intField(fields, "width"),
		Height:   intField(fields, "height"),
	}
	if exif, ok := fields["exif"].(map[string]any); ok {
		img.EXIF = make(map[string]string, len(exif))
		for k, v := range exif {
			if s, ok := v.(string); ok {
				img.EXIF[k] = s
			}
		}
	}
	return img, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
