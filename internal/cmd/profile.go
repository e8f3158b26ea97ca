package cmd

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/ibooker/imgloader/internal/raster"
	"github.com/ibooker/imgloader/internal/raster/transform"
	"github.com/ibooker/imgloader/loader"
	"gopkg.in/yaml.v3"
)

// Profile is a loader configuration read from a YAML file.
// Image paths are relative to the profile.
type Profile struct {
	Placeholder string   `yaml:"placeholder"`
	Error       string   `yaml:"error"`
	Format      string   `yaml:"format"`
	Quality     int      `yaml:"quality"`
	Saturation  *float64 `yaml:"saturation"`
	Tint        string   `yaml:"tint"`
	TintMode    string   `yaml:"tint_mode"`

	dir string
}

// LoadProfile reads a profile from path
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading profile: %w", err)
	}

	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("error parsing profile %s: %w", path, err)
	}

	p.dir = filepath.Dir(path)
	return p, nil
}

// Apply configures l from the profile, decoding images with codec
func (p *Profile) Apply(l *loader.Loader, codec raster.Codec) error {
	if p.Placeholder != "" {
		img, err := p.readImage(codec, p.Placeholder)
		if err != nil {
			return err
		}
		l.Placeholder(img)
	}

	if p.Error != "" {
		img, err := p.readImage(codec, p.Error)
		if err != nil {
			return err
		}
		l.Error(img)
	}

	if p.Format != "" {
		format, err := raster.ParseFormat(p.Format)
		if err != nil {
			return err
		}
		l.FormatType(format)
	}

	if p.Quality != 0 {
		l.SetQuality(p.Quality)
	}

	if p.Saturation != nil {
		l.SetColorFilter(*p.Saturation)
	}

	if p.Tint != "" {
		c, err := transform.ParseColor(p.Tint)
		if err != nil {
			return err
		}
		l.Tint(c)
	}

	switch strings.ToLower(p.TintMode) {
	case "", "srcin", "src_in":
	case "multiply":
		l.TintMode(loader.TintMultiply)
	default:
		return fmt.Errorf("invalid tint mode %q", p.TintMode)
	}

	return nil
}

func (p *Profile) readImage(codec raster.Codec, path string) (image.Image, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading image: %w", err)
	}

	img, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}

	return img, nil
}
