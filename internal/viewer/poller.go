package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/summitapp/viewerd/internal/obs"
)

// StatusClient reports the backend's processing status for a course.
type StatusClient interface {
	CourseStatus(ctx context.Context, courseID, credential string) (string, error)
}

// StatusFunc is one status probe.
type StatusFunc func(ctx context.Context) (string, error)

// Terminal course-processing states.
const (
	statusComplete = "complete"
	statusReady    = "ready"
	statusFailed   = "failed"
	statusError    = "error"
)

// maxConsecutiveProbeFailures aborts a poll whose status endpoint
// keeps erroring rather than spinning until the timeout.
const maxConsecutiveProbeFailures = 3

// Poller waits for a course to finish processing with an explicit
// interval, an overall timeout, and terminal-state detection.
type Poller struct {
	Client   StatusClient
	Interval time.Duration
	Timeout  time.Duration
	Hook     obs.Hook
	Log      *slog.Logger
}

// Status probes the backend once.
func (p *Poller) Status(ctx context.Context, courseID, credential string) (string, error) {
	return p.Client.CourseStatus(ctx, courseID, credential)
}

// Wait polls fn until a terminal state, the timeout, or ctx
// cancellation. The first probe is immediate.
func (p *Poller) Wait(ctx context.Context, fn StatusFunc) error {
	hook := p.Hook
	if hook == nil {
		hook = obs.NopHook{}
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	failures := 0
	for {
		status, err := fn(ctx)
		if err != nil {
			failures++
			if failures >= maxConsecutiveProbeFailures {
				return fmt.Errorf("status poll: %w", err)
			}
			p.Log.Warn("status probe failed", "attempt", failures, "error", err)
		} else {
			failures = 0
			hook.Emit(obs.EventPollTick, obs.String("status", status))
			switch status {
			case statusComplete, statusReady:
				hook.Emit(obs.EventPollTerminal, obs.String("status", status))
				return nil
			case statusFailed, statusError:
				hook.Emit(obs.EventPollTerminal, obs.String("status", status))
				return fmt.Errorf("course processing %s", status)
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("status poll: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
