package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

const (
	defaultRetentionDays = 30
	defaultMinAttempts   = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqPruner interface {
	DeleteBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Outbox      publishedPruner
	DLQ         dlqPruner
	Retention   int
	MinAttempts int
}

// NewOutboxRetentionJob builds the job that prunes published outbox rows and
// dead-lettered events older than the retention window. DLQ is optional.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox pruner required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		outbox:      params.Outbox,
		dlq:         params.DLQ,
		retention:   params.Retention,
		minAttempts: params.MinAttempts,
		now:         time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultRetentionDays
	}
	if job.minAttempts <= 0 {
		job.minAttempts = defaultMinAttempts
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	outbox      publishedPruner
	dlq         dlqPruner
	retention   int
	minAttempts int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var published, parked int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.outbox.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		if err != nil {
			return fmt.Errorf("published rows: %w", err)
		}
		published = n
		if j.dlq == nil {
			return nil
		}
		n, err = j.dlq.DeleteBefore(ctx, tx, cutoff)
		if err != nil {
			return fmt.Errorf("dlq rows: %w", err)
		}
		parked = n
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff.Format(time.RFC3339),
		"published_pruned": published,
		"dlq_pruned":       parked,
	}), "cron.outbox_retention")
	return nil
}
