package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// interrupts turns a stream of signals into two stages: the first closes
// the returned stop channel, the second cancels the returned context.
// release must be called to free the watcher goroutine.
func interrupts(parent context.Context, sigs <-chan os.Signal, logger *slog.Logger) (ctx context.Context, stop <-chan struct{}, release func()) {
	ctx, cancel := context.WithCancel(parent)
	stopCh := make(chan struct{})
	done := make(chan struct{})

	go func() {
		received := 0
		for {
			select {
			case sig := <-sigs:
				received++
				if received == 1 {
					logger.Warn("interrupt received, finishing current issue; interrupt again to abort", "signal", sig.String())
					close(stopCh)
					continue
				}
				logger.Warn("second interrupt, aborting", "signal", sig.String())
				cancel()
				return
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	return ctx, stopCh, func() {
		close(done)
		cancel()
	}
}

// notifyInterrupts subscribes to SIGINT and SIGTERM; the returned func
// unsubscribes.
func notifyInterrupts() (<-chan os.Signal, func()) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	return sigs, func() { signal.Stop(sigs) }
}
