package loader

import (
	"context"
	"fmt"
	"image"
	"runtime/debug"

	"github.com/ibooker/imgloader/internal/cache"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/metrics"
	"github.com/ibooker/imgloader/internal/raster"
	"github.com/ibooker/imgloader/internal/raster/transform"
	"github.com/ibooker/imgloader/internal/task"
)

// Load loads url into sink, masked to a circle if circle is set.
//
// A cached image is delivered before Load returns. Otherwise the placeholder is shown,
// and the image, or the error image, is delivered later on the delivery goroutine.
func (l *Loader) Load(sink Sink, url string, circle bool) *Loader {
	cfg := l.config.Load()

	if img, ok := l.images.Get(url); ok {
		metrics.CacheHit()
		if raster.Reachable(sink) {
			sink.ShowImage(transform.Apply(img, cfg, circle))
		}
		return l
	}

	metrics.CacheMiss()

	if cfg.Placeholder != nil && raster.Reachable(sink) {
		sink.ShowPlaceholder(transform.Decorate(cfg.Placeholder, cfg, circle))
	}

	l.registry.Submit(task.Request{
		URL:    url,
		Sink:   sink,
		Circle: circle,
		Config: cfg,
	})

	return l
}

// StartListImageLoad resubmits every load stopped by StopListImageLoad
func (l *Loader) StartListImageLoad() *Loader {
	tasks := l.registry.ResubmitAll()
	l.log.Debugw("resumed image loads", "count", len(tasks))
	return l
}

// StopListImageLoad cancels every load in flight. Cancelled loads deliver nothing.
func (l *Loader) StopListImageLoad() *Loader {
	cancelled := l.registry.CancelAll()
	l.log.Debugw("stopped image loads", "count", cancelled)
	return l
}

// result is what a worker hands to the delivery goroutine
type result struct {
	image   image.Image
	isError bool
	message string
}

// run executes a task on a pool worker
func (l *Loader) run(ctx context.Context, t *task.Task) {
	log := l.log.Request(t.ID.String(), t.Request.URL, t.Request.Circle)

	res := l.produce(ctx, t, log)

	// Nothing is delivered for a cancelled task, not even its error
	if t.State() == task.Cancelled {
		log.Debugw("discarding result of cancelled load")
		return
	}

	if !l.dispatcher.Post(func() {
		l.deliver(t, res, log)
	}) {
		l.registry.Complete(t)
		log.Debugw("loader closed, dropping result")
	}
}

// produce runs the pipeline and prepares the image to deliver
func (l *Loader) produce(ctx context.Context, t *task.Task, log *logger.Logger) (res result) {
	req := t.Request

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic loading image",
				"error", r,
				"stacktrace", string(debug.Stack()),
			)
			res = l.failure(req, fmt.Sprintf("panic loading image: %v", r))
		}
	}()

	// An earlier load of the same url may have finished in the meantime
	img, ok := l.images.Get(req.URL)
	if !ok {
		var err error
		img, err = l.pipeline.Run(ctx, req.URL, req.Config)
		if err != nil {
			if ctx.Err() == nil {
				log.Warnw("error loading image", "error", err)
			}
			return l.failure(req, err.Error())
		}

		if l.images.Put(req.URL, img) {
			metrics.CacheStored(cache.SizeOf(img))
		}
	}

	return result{
		image: transform.Apply(img, req.Config, req.Circle),
	}
}

func (l *Loader) failure(req task.Request, message string) result {
	res := result{
		isError: true,
		message: message,
	}

	if req.Config.Error != nil {
		res.image = transform.Decorate(req.Config.Error, req.Config, req.Circle)
	}

	return res
}

// deliver runs on the delivery goroutine
func (l *Loader) deliver(t *task.Task, res result, log *logger.Logger) {
	if !l.registry.Complete(t) {
		log.Debugw("discarding result of cancelled load")
		return
	}

	req := t.Request

	if !res.isError {
		if raster.Reachable(req.Sink) {
			req.Sink.ShowImage(res.image)
		}
		return
	}

	if res.image != nil && raster.Reachable(req.Sink) {
		req.Sink.ShowError(res.image)
	}

	if listener := l.listener.Load(); listener != nil {
		(*listener)(req.Sink, req.URL, req.Circle, res.message)
	}
}
