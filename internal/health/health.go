package health

import (
	"context"
	"sync"
	"time"

	"github.com/ibooker/imgloader/internal/cache"
	"github.com/ibooker/imgloader/internal/logger"
)

const checkInterval = 10 * time.Second
const checkTimeout = 8 * time.Second

// Deliverer is a loader whose delivery goroutine can be checked
type Deliverer interface {
	Alive() bool
}

// Checker is a periodic health checker
type Checker struct {
	Ctx    context.Context
	Cache  cache.Provider
	Loader Deliverer
	Log    *logger.Logger
	status Status
	mutex  sync.RWMutex
}

// Status contains the healthcheck status
type Status struct {
	Healthy bool   `json:"healthy"`
	Cache   string `json:"cache,omitempty"`
	Loader  string `json:"loader,omitempty"`
}

// Run runs a check, then keeps checking in the background until Ctx is done
func (c *Checker) Run() {
	c.runCheck()

	ticker := time.NewTicker(checkInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.runCheck()
			case <-c.Ctx.Done():
				return
			}
		}
	}()
}

// Status returns the status of the health checks
func (c *Checker) Status() Status {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.status
}

func (c *Checker) unknown(healthy bool) Status {
	status := Status{Healthy: healthy}
	if c.Cache != nil {
		status.Cache = "unknown"
	}
	if c.Loader != nil {
		status.Loader = "unknown"
	}
	return status
}

func (c *Checker) runCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	channel := make(chan Status, 1)
	go c.check(ctx, channel)

	select {
	case <-ctx.Done():
		c.mutex.Lock()
		c.status = c.unknown(false)
		c.mutex.Unlock()
		c.Log.Errorw("healthcheck timed out")
	case status, ok := <-channel:
		if !ok {
			return
		}

		c.mutex.Lock()
		c.status = status
		c.mutex.Unlock()
		if !status.Healthy {
			c.Log.Errorw("healthcheck error",
				"status", status,
			)
		}
	}
}

func (c *Checker) check(ctx context.Context, channel chan Status) {
	defer close(channel)

	status := c.unknown(true)

	if c.Loader != nil {
		if c.Loader.Alive() {
			status.Loader = "healthy"
		} else {
			status.Healthy = false
			status.Loader = "unhealthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	if c.Cache != nil {
		if _, err := c.Cache.Get(ctx, "healthcheck"); err != cache.ErrNotFound {
			status.Healthy = false
			status.Cache = "unhealthy"
		} else {
			status.Cache = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	channel <- status
}
