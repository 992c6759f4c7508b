package cron

import (
	"context"
	"fmt"

	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

const defaultDriftRepairLimit = 200

type driftRepairer interface {
	RepairPaidDrift(ctx context.Context, limit int) (int, error)
}

// PayerDriftJobParams configure the payer drift repair job.
type PayerDriftJobParams struct {
	Logger   *logger.Logger
	Repairer driftRepairer
	Limit    int
}

// NewPayerDriftJob builds the job that marks UNPAID payers holding a
// SUCCEEDED payment as PAID.
func NewPayerDriftJob(params PayerDriftJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repairer == nil {
		return nil, fmt.Errorf("drift repairer required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultDriftRepairLimit
	}
	return &payerDriftJob{
		logg:     params.Logger,
		repairer: params.Repairer,
		limit:    limit,
	}, nil
}

type payerDriftJob struct {
	logg     *logger.Logger
	repairer driftRepairer
	limit    int
}

func (j *payerDriftJob) Name() string { return "payer-drift-repair" }

func (j *payerDriftJob) Run(ctx context.Context) error {
	repaired, err := j.repairer.RepairPaidDrift(ctx, j.limit)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"limit":           j.limit,
		"payers_repaired": repaired,
	})
	if err != nil {
		return fmt.Errorf("payer drift repair: %w", err)
	}
	if repaired == j.limit {
		j.logg.Warn(logCtx, "drift repair hit its limit; more payers may remain")
		return nil
	}
	j.logg.Info(logCtx, "payer drift repair complete")
	return nil
}
