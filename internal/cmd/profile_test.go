package cmd_test

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ibooker/imgloader/internal/cmd"
	"github.com/ibooker/imgloader/internal/raster/codec"
	"github.com/ibooker/imgloader/loader"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProfile(t *testing.T) {
	dir := t.TempDir()

	f, err := os.Create(filepath.Join(dir, "placeholder.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	path := filepath.Join(dir, "profile.yaml")
	writeFile(t, path, `
placeholder: placeholder.png
format: webp
quality: 150
saturation: 0.5
tint: "#80FF0000"
tint_mode: multiply
`)

	profile, err := cmd.LoadProfile(path)
	if err != nil {
		t.Fatal(err)
	}

	l := loader.New()
	defer l.Close()

	if err := profile.Apply(l, codec.New()); err != nil {
		t.Fatal(err)
	}

	cfg := l.Config()
	if cfg.Placeholder == nil || cfg.Placeholder.Bounds().Dx() != 2 {
		t.Error("placeholder not loaded")
	}

	if cfg.Format != loader.WebP {
		t.Errorf("wrong format %s", cfg.Format)
	}

	if cfg.Quality != 100 {
		t.Errorf("quality not clamped, got %d", cfg.Quality)
	}

	if cfg.Saturation == nil || *cfg.Saturation != 0.5 {
		t.Error("wrong saturation")
	}

	if cfg.Tint == nil || cfg.TintMode != loader.TintMultiply {
		t.Error("tint not applied")
	}
}

func TestProfileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		Name    string
		Content string
	}{
		{"invalid format", "format: gif"},
		{"invalid tint", "tint: nope"},
		{"invalid tint mode", "tint_mode: screen"},
		{"missing image", "error: missing.png"},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			path := filepath.Join(dir, "profile.yaml")
			writeFile(t, path, tt.Content)

			profile, err := cmd.LoadProfile(path)
			if err != nil {
				t.Fatal(err)
			}

			l := loader.New()
			defer l.Close()

			if err := profile.Apply(l, codec.New()); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := cmd.LoadProfile(filepath.Join(dir, "nonexistent.yaml")); err == nil {
		t.Error("expected an error for a missing profile")
	}
}
