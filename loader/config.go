package loader

import (
	"image"
	"image/color"

	"github.com/ibooker/imgloader/internal/raster"
)

func (l *Loader) update(f func(*raster.Config) *raster.Config) *Loader {
	for {
		old := l.config.Load()
		if l.config.CompareAndSwap(old, f(old)) {
			return l
		}
	}
}

// Placeholder sets the image shown while a load is in flight, nil for none
func (l *Loader) Placeholder(img image.Image) *Loader {
	return l.update(func(c *raster.Config) *raster.Config {
		return c.WithPlaceholder(img)
	})
}

// Error sets the image shown when a load fails, nil for none
func (l *Loader) Error(img image.Image) *Loader {
	return l.update(func(c *raster.Config) *raster.Config {
		return c.WithError(img)
	})
}

// FormatType sets the format images are re-encoded in before caching
func (l *Loader) FormatType(format Format) *Loader {
	return l.update(func(c *raster.Config) *raster.Config {
		return c.WithFormat(format)
	})
}

// SetQuality sets the re-encode quality. Values are clamped to [1, 100].
func (l *Loader) SetQuality(quality int) *Loader {
	return l.update(func(c *raster.Config) *raster.Config {
		return c.WithQuality(quality)
	})
}

// SetColorFilter sets the saturation of delivered images, 0 is grayscale and 1 leaves them unchanged
func (l *Loader) SetColorFilter(saturation float64) *Loader {
	return l.update(func(c *raster.Config) *raster.Config {
		return c.WithSaturation(saturation)
	})
}

// Tint sets the tint colour of delivered images, nil for none
func (l *Loader) Tint(c color.Color) *Loader {
	return l.update(func(cfg *raster.Config) *raster.Config {
		return cfg.WithTint(c)
	})
}

// TintMode sets how the tint colour is blended, TintSrcIn by default
func (l *Loader) TintMode(mode TintMode) *Loader {
	return l.update(func(c *raster.Config) *raster.Config {
		return c.WithTintMode(mode)
	})
}

// SetImageLoadErrorListener sets the listener called for failed loads, nil for none
func (l *Loader) SetImageLoadErrorListener(listener ErrorListener) *Loader {
	if listener == nil {
		l.listener.Store(nil)
	} else {
		l.listener.Store(&listener)
	}
	return l
}
