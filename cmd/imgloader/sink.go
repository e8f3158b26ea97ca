package main

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/ibooker/imgloader/internal/raster"
)

var (
	okColor      = color.New(color.FgGreen)
	pendingColor = color.New(color.FgHiBlack)
	errColor     = color.New(color.FgRed)
)

// fileSink writes the images delivered for one URL to disk
type fileSink struct {
	url    string
	path   string
	codec  raster.Codec
	config func() *raster.Config

	once sync.Once
	done chan struct{}
	err  error
}

func newFileSink(url, path string, codec raster.Codec, config func() *raster.Config) *fileSink {
	return &fileSink{
		url:    url,
		path:   path,
		codec:  codec,
		config: config,
		done:   make(chan struct{}),
	}
}

func (s *fileSink) ShowPlaceholder(img image.Image) {
	pendingColor.Printf("loading  %s\n", s.url)
}

func (s *fileSink) ShowImage(img image.Image) {
	path := s.path + s.config().Format.Extension()
	if err := s.write(path, img); err != nil {
		s.finish(err)
		return
	}

	okColor.Printf("loaded   %s -> %s\n", s.url, path)
	s.finish(nil)
}

func (s *fileSink) ShowError(img image.Image) {
	path := s.path + ".error" + s.config().Format.Extension()
	if err := s.write(path, img); err != nil {
		errColor.Printf("error    %s: %s\n", s.url, err)
	}
}

// fail is called by the error listener
func (s *fileSink) fail(message string) {
	s.finish(fmt.Errorf("%s", message))
}

func (s *fileSink) finish(err error) {
	s.once.Do(func() {
		if err != nil {
			errColor.Printf("failed   %s: %s\n", s.url, err)
		}
		s.err = err
		close(s.done)
	})
}

func (s *fileSink) write(path string, img image.Image) error {
	cfg := s.config()
	data, err := s.codec.Encode(img, cfg.Format, cfg.Quality)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
