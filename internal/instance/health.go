package instance

import (
	"context"
	"time"

	"github.com/marscredit/monorepo/internal/rpcclient"
)

// healthInterval is the period between net_version probes.
const healthInterval = 5 * time.Second

// healthFailureThreshold is the number of consecutive failures that trigger
// a self-stop under normal operation.
const healthFailureThreshold = 3

// startupGrace is the window after start during which the failure threshold
// is doubled, absorbing slow first-sync connection failures.
const startupGrace = 60 * time.Second

// healthChecker polls net_version on a fixed interval and calls onUnhealthy
// once the consecutive-failure count crosses the (possibly doubled)
// threshold. It is owned exclusively by a single Instance.
type healthChecker struct {
	rpc         *rpcclient.Client
	url         string
	startedAt   time.Time
	onUnhealthy func()

	interval  time.Duration
	grace     time.Duration
	threshold int

	stop chan struct{}
	done chan struct{}
}

// newHealthChecker builds a checker using the production interval,
// failure threshold, and startup grace window.
func newHealthChecker(rpc *rpcclient.Client, url string, startedAt time.Time, onUnhealthy func()) *healthChecker {
	return newHealthCheckerWithParams(rpc, url, startedAt, onUnhealthy, healthInterval, healthFailureThreshold, startupGrace)
}

// newHealthCheckerWithParams allows tests to shrink the interval/grace
// window so the 3-strikes self-stop property doesn't require waiting on
// production timing.
func newHealthCheckerWithParams(rpc *rpcclient.Client, url string, startedAt time.Time, onUnhealthy func(), interval time.Duration, threshold int, grace time.Duration) *healthChecker {
	return &healthChecker{
		rpc:         rpc,
		url:         url,
		startedAt:   startedAt,
		onUnhealthy: onUnhealthy,
		interval:    interval,
		threshold:   threshold,
		grace:       grace,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (h *healthChecker) currentThreshold(now time.Time) int {
	if now.Sub(h.startedAt) < h.grace {
		return h.threshold * 2
	}
	return h.threshold
}

// run blocks until Stop is called or the failure threshold is crossed, at
// which point onUnhealthy is invoked exactly once and run returns.
func (h *healthChecker) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.interval)
			_, err := h.rpc.NetVersion(ctx, h.url)
			cancel()
			if err != nil {
				failures++
				if failures >= h.currentThreshold(now) {
					select {
					case <-h.stop:
						return
					default:
					}
					h.onUnhealthy()
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// Stop cancels the checker without waiting for its goroutine to exit; a
// probe already in flight is allowed to complete but will not fire
// onUnhealthy once stop has been requested. Safe to call more than once.
func (h *healthChecker) Stop() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
}
