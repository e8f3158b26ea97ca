package raster

import (
	"image"
	"image/color"
)

// Quality bounds
const (
	MinQuality     = 1
	MaxQuality     = 100
	DefaultQuality = 50
)

// TintMode selects how a tint colour is composited onto an image
type TintMode int

const (
	// TintSrcIn replaces the image colour with the tint, keeping the image alpha
	TintSrcIn TintMode = iota
	// TintMultiply multiplies the image colour with the tint
	TintMultiply
)

// Config is the decoding and display configuration shared by every request of a loader.
// A Config is never modified once published; the With methods return modified copies.
type Config struct {
	Placeholder image.Image
	Error       image.Image
	Format      OutputFormat
	Quality     int
	// Saturation is nil when no colour filter is configured
	Saturation *float64
	Tint       color.Color
	TintMode   TintMode
}

// DefaultConfig returns the configuration used before any option is set
func DefaultConfig() *Config {
	return &Config{
		Format:  PNG,
		Quality: DefaultQuality,
	}
}

func (c *Config) clone() *Config {
	n := *c
	if c.Saturation != nil {
		s := *c.Saturation
		n.Saturation = &s
	}
	return &n
}

// WithPlaceholder sets the image shown while a request is loading
func (c *Config) WithPlaceholder(img image.Image) *Config {
	n := c.clone()
	n.Placeholder = img
	return n
}

// WithError sets the image shown when a request fails
func (c *Config) WithError(img image.Image) *Config {
	n := c.clone()
	n.Error = img
	return n
}

// WithFormat sets the re-encode format
func (c *Config) WithFormat(format OutputFormat) *Config {
	n := c.clone()
	n.Format = format
	return n
}

// WithQuality sets the re-encode quality, clamped to [MinQuality, MaxQuality]
func (c *Config) WithQuality(quality int) *Config {
	n := c.clone()
	n.Quality = ClampQuality(quality)
	return n
}

// WithSaturation sets the colour filter saturation, clamped to [0, 1]
func (c *Config) WithSaturation(saturation float64) *Config {
	n := c.clone()
	s := ClampSaturation(saturation)
	n.Saturation = &s
	return n
}

// WithTint sets the tint colour, nil removes it
func (c *Config) WithTint(tint color.Color) *Config {
	n := c.clone()
	n.Tint = tint
	return n
}

// WithTintMode sets how the tint is applied
func (c *Config) WithTintMode(mode TintMode) *Config {
	n := c.clone()
	n.TintMode = mode
	return n
}

// ClampQuality clamps a quality value to [MinQuality, MaxQuality]
func ClampQuality(quality int) int {
	if quality < MinQuality {
		return MinQuality
	}
	if quality > MaxQuality {
		return MaxQuality
	}
	return quality
}

// ClampSaturation clamps a saturation value to [0, 1]
func ClampSaturation(saturation float64) float64 {
	if saturation < 0 {
		return 0
	}
	if saturation > 1 {
		return 1
	}
	return saturation
}
