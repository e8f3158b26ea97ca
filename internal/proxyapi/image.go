package proxyapi

import (
	"fmt"
	"image"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/ibooker/imgloader/internal/handler"
	"github.com/ibooker/imgloader/internal/params"
	"github.com/twmb/murmur3"
)

const sourceHeader = "Image-Source"

type result struct {
	image   image.Image
	message string
}

// responseSink hands the first delivered image or failure to a waiting request
type responseSink struct {
	results  chan result
	detached atomic.Bool
}

func newResponseSink() *responseSink {
	return &responseSink{
		results: make(chan result, 1),
	}
}

func (s *responseSink) ShowPlaceholder(image.Image) {}

func (s *responseSink) ShowError(image.Image) {}

func (s *responseSink) ShowImage(img image.Image) {
	s.deliver(result{image: img})
}

func (s *responseSink) fail(message string) {
	s.deliver(result{message: message})
}

func (s *responseSink) deliver(r result) {
	select {
	case s.results <- r:
	default:
	}
}

func (s *responseSink) Detached() bool {
	return s.detached.Load()
}

func (a *API) imageHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	p, err := params.GetParams(r)
	if err != nil {
		return handler.BadRequest(err.Error())
	}

	if a.HMAC.Enabled() && !params.ValidateSignature(a.HMAC, r, p) {
		return handler.BadRequest("Invalid parameters")
	}

	sink := newResponseSink()
	defer sink.detached.Store(true)

	a.Loader.Load(sink, p.URL, p.Circle)

	var res result
	select {
	case res = <-sink.results:
	case <-r.Context().Done():
		return handler.InternalServerError()
	}

	if res.image == nil {
		a.Log.Debugw("error loading image", handler.LogFields(r, "url", p.URL, "error", res.message)...)
		return handler.BadGateway(res.message)
	}

	cfg := a.Loader.Config()
	data, err := a.Codec.Encode(res.image, cfg.Format, cfg.Quality)
	if err != nil {
		a.logError(r, "error encoding image", err)
		return handler.InternalServerError()
	}

	etag := fmt.Sprintf("%q", strconv.FormatUint(murmur3.Sum64(data), 16))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set(sourceHeader, p.URL)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("Content-Type", cfg.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"image%s\"", cfg.Format.Extension()))
	w.Write(data)

	return nil
}
