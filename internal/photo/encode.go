package photo

import (
	"fmt"
	"image"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// DefaultQuality is the lossy WebP quality used for every rendition.
const DefaultQuality = 85

// Encoder writes an image in a single output format.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
	// Ext returns the file extension of the format, including the dot.
	Ext() string
}

// WebPEncoder encodes lossy WebP at a fixed quality (0-100).
type WebPEncoder struct {
	Quality int
}

// NewWebPEncoder returns an encoder at the given quality, falling back to
// DefaultQuality for out-of-range values.
func NewWebPEncoder(quality int) WebPEncoder {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return WebPEncoder{Quality: quality}
}

// Encode implements Encoder.
func (e WebPEncoder) Encode(w io.Writer, img image.Image) error {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(e.Quality))
	if err != nil {
		return fmt.Errorf("webp options: %w", err)
	}
	if err := webp.Encode(w, img, opts); err != nil {
		return fmt.Errorf("webp encode: %w", err)
	}
	return nil
}

// Ext implements Encoder.
func (WebPEncoder) Ext() string { return ".webp" }
