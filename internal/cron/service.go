package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/metrics"
)

const (
	defaultInterval   = 5 * time.Minute
	defaultJobTimeout = time.Minute
)

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval while holding the
// cluster-wide lock. A failing job does not stop the jobs after it.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

// CycleResult summarizes one pass over the registry.
type CycleResult struct {
	Skipped bool
	Ran     int
	Failed  []string
}

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
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single cycle. It reports Skipped when another worker
// holds the lock.
func (s *Service) RunOnce(ctx context.Context) (CycleResult, error) {
	var result CycleResult
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return result, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !locked {
		result.Skipped = true
		s.metrics.CycleSkipped()
		s.logg.Debug(ctx, "cron.cycle_skipped")
		return result, nil
	}
	defer func() {
		// The cycle context may already be canceled; release regardless.
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cron.lock_release_failed")
		}
	}()

	start := time.Now()
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			break
		}
		result.Ran++
		if err := s.runJob(ctx, job); err != nil {
			result.Failed = append(result.Failed, job.Name())
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs_run":    result.Ran,
		"jobs_failed": len(result.Failed),
		"duration_ms": time.Since(start).Milliseconds(),
	}), "cron.cycle_complete")
	return result, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", job.Name()), s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	logCtx := s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())

	switch {
	case err == nil:
		s.metrics.JobRun(job.Name(), metrics.JobSucceeded, elapsed)
		s.logg.Debug(logCtx, "cron.job_complete")
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		s.metrics.JobRun(job.Name(), metrics.JobTimedOut, elapsed)
		s.logg.Error(logCtx, "cron.job_timeout", err)
	default:
		s.metrics.JobRun(job.Name(), metrics.JobFailed, elapsed)
		s.logg.Error(logCtx, "cron.job_failed", err)
	}
	return err
}
