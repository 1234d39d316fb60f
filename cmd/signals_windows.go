//go:build windows

package cmd

// notifySummaryRequests is a no-op: Windows has no SIGUSR1.
func notifySummaryRequests(requests chan<- struct{}) (stop func()) {
	return func() {}
}
