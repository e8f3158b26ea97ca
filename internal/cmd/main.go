package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ibooker/imgloader/internal/pipeline"
)

// Proxy server timeouts. A handler may wait for a full fetch before it writes the image.
const (
	ReadTimeout    = 5 * time.Second
	HandlerTimeout = pipeline.DefaultTimeout + 15*time.Second
	WriteTimeout   = HandlerTimeout + 15*time.Second
)

var interruptSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// WaitForInterrupt blocks until the process receives SIGINT or SIGTERM, or ctx is done.
// The returned error names the reason.
func WaitForInterrupt(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, interruptSignals...)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		return fmt.Errorf("received signal %s", sig)
	case <-ctx.Done():
		return errors.New("canceled")
	}
}

// InterruptContext returns a copy of ctx that is cancelled on SIGINT or SIGTERM.
// Calling stop restores the default signal behaviour.
func InterruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, interruptSignals...)
}
