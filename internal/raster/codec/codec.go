package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/ibooker/imgloader/internal/raster"

	// Register the WebP decoder for imaging.Decode
	_ "golang.org/x/image/webp"
)

// Errors
var (
	ErrEmptyBuffer = errors.New("empty buffer")
	ErrNoImage     = errors.New("decoder returned no image")
)

// Standard is a codec built on the Go image decoders, imaging and libwebp
type Standard struct{}

// New returns a new Standard codec
func New() *Standard {
	return &Standard{}
}

// Decode decodes PNG, JPEG, GIF or WebP data, applying the EXIF orientation
func (c *Standard) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBuffer
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	if img == nil {
		return nil, ErrNoImage
	}

	return img, nil
}

// Encode encodes img in the given format. Quality only affects the lossy formats.
func (c *Standard) Encode(img image.Image, format raster.OutputFormat, quality int) ([]byte, error) {
	if img == nil {
		return nil, ErrNoImage
	}

	quality = raster.ClampQuality(quality)

	var (
		buf bytes.Buffer
		err error
	)

	switch format {
	case raster.JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case raster.WebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)})
	default:
		err = imaging.Encode(&buf, img, imaging.PNG)
	}

	if err != nil {
		return nil, fmt.Errorf("error encoding %s: %w", format, err)
	}

	return buf.Bytes(), nil
}
