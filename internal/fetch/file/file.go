package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ibooker/imgloader/internal/fetch"
)

// Provider implements fetching of file:// URLs below a root directory
type Provider struct {
	path string
}

// New returns a new Provider instance
func New(path string) (*Provider, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	return &Provider{
		abs,
	}, nil
}

// Fetch returns the contents of the file a file:// URL points to
func (p *Provider) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	path := filepath.Clean(filepath.Join(p.path, filepath.FromSlash(u.Host+u.Path)))
	if rel, err := filepath.Rel(p.path, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("path %q is outside of %s", u.Path, p.path)
	}

	imageData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fetch.ErrNotFound
		}

		return nil, err
	}

	return imageData, nil
}
