package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

type fakeRepairer struct {
	limit    int
	repaired int
	err      error
}

func (f *fakeRepairer) RepairPaidDrift(ctx context.Context, limit int) (int, error) {
	f.limit = limit
	return f.repaired, f.err
}

func TestPayerDriftJobUsesDefaultLimit(t *testing.T) {
	repairer := &fakeRepairer{repaired: 3}
	job, err := NewPayerDriftJob(PayerDriftJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repairer: repairer,
	})
	if err != nil {
		t.Fatalf("NewPayerDriftJob: %v", err)
	}
	if job.Name() != "payer-drift-repair" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repairer.limit != defaultDriftRepairLimit {
		t.Fatalf("expected limit %d, got %d", defaultDriftRepairLimit, repairer.limit)
	}
}

func TestPayerDriftJobPropagatesError(t *testing.T) {
	job, err := NewPayerDriftJob(PayerDriftJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repairer: &fakeRepairer{err: errors.New("db down")},
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("NewPayerDriftJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPayerDriftJobRequiresRepairer(t *testing.T) {
	_, err := NewPayerDriftJob(PayerDriftJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
