// Package download fetches and decodes single images without caching, transforms or per-request cancellation.
package download

import (
	"context"
	"image"
	"sync"

	"github.com/ibooker/imgloader/internal/dispatch"
	"github.com/ibooker/imgloader/internal/fetch"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/raster"
	"github.com/ibooker/imgloader/internal/tracing"
)

// Callback receives the decoded image, or the error, of a download
type Callback func(img image.Image, err error)

// Downloader runs downloads in the background and calls back on a single delivery goroutine
type Downloader struct {
	log     *logger.Logger
	tracer  *tracing.Tracer
	fetcher fetch.Fetcher
	codec   raster.Codec

	dispatcher *dispatch.Dispatcher
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New returns a Downloader and starts its delivery goroutine
func New(log *logger.Logger, tracer *tracing.Tracer, fetcher fetch.Fetcher, codec raster.Codec) *Downloader {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Downloader{
		log:        log,
		tracer:     tracer,
		fetcher:    fetcher,
		codec:      codec,
		dispatcher: dispatch.New(log),
		ctx:        ctx,
		cancel:     cancel,
	}

	go d.dispatcher.Run()

	return d
}

// Download fetches and decodes url, then calls cb unless the downloader was destroyed first
func (d *Downloader) Download(url string, cb Callback) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		img, err := d.download(url)
		if !d.dispatcher.Post(func() { cb(img, err) }) {
			d.log.Debugw("downloader destroyed, dropping result", "url", url)
		}
	}()
}

func (d *Downloader) download(url string) (image.Image, error) {
	ctx, span := d.tracer.Start(d.ctx, "download")
	defer span.End()

	data, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	return d.codec.Decode(data)
}

// Destroy drops every pending callback and waits for running downloads to return
func (d *Downloader) Destroy() {
	d.dispatcher.Close()
	d.cancel()
	d.wg.Wait()
}
