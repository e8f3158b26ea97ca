package raster

import (
	"fmt"
	"image"
	"strings"
)

// OutputFormat is the format images are re-encoded to before caching
type OutputFormat int

const (
	// PNG represents the PNG format
	PNG OutputFormat = iota
	// JPEG represents the JPEG format
	JPEG
	// WebP represents the WebP format
	WebP
)

// ErrInvalidFormat is returned when parsing an unknown format name
var ErrInvalidFormat = fmt.Errorf("invalid output format")

// ParseFormat parses a format name or file extension
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "webp":
		return WebP, nil
	}

	return PNG, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

func (f OutputFormat) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	case WebP:
		return "webp"
	default:
		return "png"
	}
}

// Extension returns the file extension for the format, including the dot
func (f OutputFormat) Extension() string {
	switch f {
	case JPEG:
		return ".jpg"
	case WebP:
		return ".webp"
	default:
		return ".png"
	}
}

// ContentType returns the MIME type for the format
func (f OutputFormat) ContentType() string {
	return "image/" + f.String()
}

// Codec decodes and encodes rasters
type Codec interface {
	Decode(data []byte) (image.Image, error)
	Encode(img image.Image, format OutputFormat, quality int) ([]byte, error)
}
