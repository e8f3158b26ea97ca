// Package transform implements the visual transforms applied to images at delivery time.
//
// Transforms never modify their input; each returns a new raster with its origin at (0, 0).
package transform

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	"github.com/ibooker/imgloader/internal/raster"
)

// Apply applies the configured colour filter and tint, then the circle mask if requested
func Apply(img image.Image, cfg *raster.Config, circle bool) image.Image {
	if img == nil {
		return nil
	}

	out := img
	if cfg.Saturation != nil {
		out = Saturate(out, *cfg.Saturation)
	}

	if cfg.Tint != nil {
		out = Tint(out, cfg.Tint, cfg.TintMode)
	}

	if circle {
		out = Circle(out)
	}

	return out
}

// Decorate applies the configured colour filter and the circle mask, but no tint.
// Placeholder and error images are decorated rather than fully transformed.
func Decorate(img image.Image, cfg *raster.Config, circle bool) image.Image {
	if img == nil {
		return nil
	}

	out := img
	if cfg.Saturation != nil {
		out = Saturate(out, *cfg.Saturation)
	}

	if circle {
		out = Circle(out)
	}

	return out
}

// Circle returns a copy of img where everything outside the inscribed circle is fully
// transparent. Pixels inside the circle keep their colour and alpha.
func Circle(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	d := w
	if h < d {
		d = h
	}
	r := float64(d) / 2
	cx, cy := float64(w)/2, float64(h)/2

	dst := image.NewNRGBA(bounds)
	for y := 0; y < h; y++ {
		// Sample at the pixel centre
		dy := float64(y) + 0.5 - cy
		for x := 0; x < w; x++ {
			dx := float64(x) + 0.5 - cx
			if dx*dx+dy*dy > r*r {
				continue
			}

			i := y*src.Stride + x*4
			copy(dst.Pix[i:i+4], src.Pix[i:i+4])
		}
	}

	return dst
}

// Saturate scales the colour saturation of img. 1 leaves the image unchanged, 0 produces grayscale.
func Saturate(img image.Image, saturation float64) *image.NRGBA {
	saturation = raster.ClampSaturation(saturation)
	if saturation >= 1 {
		return imaging.Clone(img)
	}

	if saturation <= 0 {
		return imaging.Grayscale(img)
	}

	return imaging.AdjustSaturation(img, (saturation-1)*100)
}

// Tint composites c onto img according to mode
func Tint(img image.Image, c color.Color, mode raster.TintMode) *image.NRGBA {
	src := imaging.Clone(img)
	bounds := src.Bounds()

	switch mode {
	case raster.TintMultiply:
		layer := imaging.New(bounds.Dx(), bounds.Dy(), c)
		multiplied := imaging.Clone(blend.Multiply(src, layer))

		// Keep the source alpha so transparent regions stay transparent
		for i := 3; i < len(multiplied.Pix); i += 4 {
			multiplied.Pix[i] = src.Pix[i]
		}
		return multiplied
	default:
		tint := color.NRGBAModel.Convert(c).(color.NRGBA)
		dst := image.NewNRGBA(bounds)
		for i := 0; i < len(src.Pix); i += 4 {
			dst.Pix[i+0] = tint.R
			dst.Pix[i+1] = tint.G
			dst.Pix[i+2] = tint.B
			dst.Pix[i+3] = uint8(uint16(src.Pix[i+3]) * uint16(tint.A) / 0xff)
		}
		return dst
	}
}
