package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

const defaultInterval = time.Hour

type runObserver interface {
	ObserveRun(job string, took time.Duration, end time.Time, err error)
	CycleSkipped()
}

// ServiceParams configure the cron service. Metrics is optional.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  runObserver
	Interval time.Duration
}

// Service runs the registered sweeps on a fixed cadence, one instance at a
// time across the fleet.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  runObserver
	interval time.Duration
	now      func() time.Time
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run executes a cycle immediately and then every interval until ctx ends.
// Cycle failures are logged, never fatal.
func (s *Service) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logg.Error(ctx, "cron.cycle_failed", err)
			}
			timer.Reset(s.interval)
		}
	}
}

// RunOnce executes every registered job under the sweep lock. A cycle that
// loses the lock is skipped without error. Job failures do not stop later
// jobs and are returned together.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.locked(ctx, func() error {
		var errs error
		for _, job := range s.registry.Jobs() {
			errs = multierr.Append(errs, s.runJob(ctx, job))
		}
		return errs
	})
}

// RunJob executes the named job under the sweep lock.
func (s *Service) RunJob(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown job %q (known: %v)", name, s.registry.Names())
	}
	return s.locked(ctx, func() error { return s.runJob(ctx, job) })
}

func (s *Service) locked(ctx context.Context, fn func() error) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !acquired {
		if s.metrics != nil {
			s.metrics.CycleSkipped()
		}
		s.logg.Info(ctx, "cron.cycle_skipped")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()
	return fn()
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	start := s.now()
	err := job.Run(ctx)
	end := s.now()
	if s.metrics != nil {
		s.metrics.ObserveRun(job.Name(), end.Sub(start), end, err)
	}

	ctx = s.logg.WithField(ctx, "duration_ms", end.Sub(start).Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron.job_failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(ctx, "cron.job_completed")
	return nil
}
