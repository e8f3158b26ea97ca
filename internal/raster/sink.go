package raster

import "image"

// Sink receives the images produced for a single load request
type Sink interface {
	ShowPlaceholder(img image.Image)
	ShowImage(img image.Image)
	ShowError(img image.Image)
}

// Detacher is implemented by sinks that can be torn down while a request is in flight.
// Deliveries to a detached sink are skipped.
type Detacher interface {
	Detached() bool
}

// Reachable reports whether a delivery to sink should still happen
func Reachable(sink Sink) bool {
	if sink == nil {
		return false
	}

	if d, ok := sink.(Detacher); ok {
		return !d.Detached()
	}

	return true
}
