// Package photo holds the pure image operations of the pipeline: decoding,
// colour flattening, orientation and long-edge resizing.
//
// Every function is stateless and safe to call from concurrent workers on
// distinct images.
package photo

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/starford/folio/internal/models"
)

// Resize scales img so that its long edge is exactly target pixels. The short
// edge is scaled by the same ratio and truncated. Width is the long edge when
// width >= height. Smaller sources are scaled up so every tier has uniform
// dimensions. When the long edge already equals target, img is returned as is.
func Resize(img image.Image, target int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || target <= 0 {
		return img
	}

	var nw, nh int
	if w >= h {
		if w == target {
			return img
		}
		nw, nh = target, h*target/w
	} else {
		if h == target {
			return img
		}
		nw, nh = w*target/h, target
	}
	// Extremely thin images would otherwise truncate to zero.
	nw, nh = max(nw, 1), max(nh, 1)

	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}

// OrientationOf classifies a width/height pair.
func OrientationOf(width, height int) models.Orientation {
	switch {
	case width > height:
		return models.Landscape
	case height > width:
		return models.Portrait
	default:
		return models.Square
	}
}

// Flatten converts palette images and images carrying a non-opaque alpha
// channel into an opaque RGB image. Alpha is dropped, colour is kept.
// Anything else is returned unchanged.
func Flatten(img image.Image) image.Image {
	if _, ok := img.(*image.Paletted); ok {
		return opaque(img)
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		if o.Opaque() {
			return img
		}
		return opaque(img)
	}
	if hasAlpha(img.ColorModel()) {
		return opaque(img)
	}
	return img
}

func hasAlpha(m color.Model) bool {
	switch m {
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model,
		color.AlphaModel, color.Alpha16Model, color.NYCbCrAModel:
		return true
	}
	return false
}

func opaque(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Decode opens and decodes the image at path. JPEG, PNG, WebP, TIFF and BMP
// are supported.
func Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// DecodeConfig reads only the image header and returns its dimensions.
func DecodeConfig(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode header %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}
