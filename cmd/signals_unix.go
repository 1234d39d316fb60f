//go:build !windows

package cmd

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySummaryRequests forwards SIGUSR1 to requests without ever blocking
// the signal handler. A request arriving while one is pending is dropped.
func notifySummaryRequests(requests chan<- struct{}) (stop func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-sig:
				select {
				case requests <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sig)
		close(done)
	}
}
