package services

import (
	"context"
	"errors"

	bridgeerrors "exista-mqtt-bridge/pkg/errors"
	"exista-mqtt-bridge/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Runner starts every service on its own goroutine. The first error
// cancels the others and is returned from Run.
type Runner struct {
	services []Service
	fatal    <-chan error
}

// NewRunner creates a runner for the given services
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// WithFatalSignal makes any error received on ch end the run as fatal.
// Used for failures raised outside a service, such as MQTT callbacks.
func (r *Runner) WithFatalSignal(ch <-chan error) *Runner {
	r.fatal = ch
	return r
}

// Jobs lists the services in start order
func (r *Runner) Jobs() []Job {
	jobs := make([]Job, len(r.services))
	for i, s := range r.services {
		jobs[i] = s.Job()
	}
	return jobs
}

// Run blocks until ctx is cancelled or a service fails. Cancellation is
// not an error.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, s := range r.services {
		s := s
		g.Go(func() error {
			logger.LogDebug("🚀 Starting %s service", s.Job())
			err := s.Run(gctx)
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			logger.LogError("❌ %s service exited: %v", s.Job(), err)
			return err
		})
	}

	if r.fatal != nil {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case err := <-r.fatal:
				if bridgeerrors.IsFatal(err) {
					return err
				}
				return bridgeerrors.NewFatalError("signal", err)
			}
		})
	}

	return g.Wait()
}
