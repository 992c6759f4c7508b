package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

type recordingPruner struct {
	cutoff      time.Time
	minAttempts int
	calls       int
	err         error
}

func (p *recordingPruner) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	p.calls++
	p.cutoff = cutoff
	p.minAttempts = minAttempts
	return 4, p.err
}

func (p *recordingPruner) DeleteBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	p.calls++
	p.cutoff = cutoff
	return 2, p.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func retentionJob(t *testing.T, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	params.DB = passthroughTx{}
	job, err := NewOutboxRetentionJob(params)
	require.NoError(t, err)
	return job.(*outboxRetentionJob)
}

func TestOutboxRetentionPrunesBothTables(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	published := &recordingPruner{}
	dlq := &recordingPruner{}
	job := retentionJob(t, OutboxRetentionJobParams{Outbox: published, DLQ: dlq, Retention: 7})
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	want := time.Date(2026, 3, 24, 12, 0, 0, 0, time.UTC)
	require.Equal(t, want, published.cutoff)
	require.Equal(t, want, dlq.cutoff)
	require.Equal(t, defaultMinAttempts, published.minAttempts)
}

func TestOutboxRetentionWithoutDLQ(t *testing.T) {
	published := &recordingPruner{}
	job := retentionJob(t, OutboxRetentionJobParams{Outbox: published})

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, published.calls)
	require.Equal(t, defaultRetentionDays, job.retention)
}

func TestOutboxRetentionStopsOnError(t *testing.T) {
	published := &recordingPruner{err: errors.New("boom")}
	dlq := &recordingPruner{}
	job := retentionJob(t, OutboxRetentionJobParams{Outbox: published, DLQ: dlq})

	err := job.Run(context.Background())
	require.ErrorContains(t, err, "published rows")
	require.Zero(t, dlq.calls)
}

func TestOutboxRetentionRequiresPruner(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:     passthroughTx{},
	})
	require.Error(t, err)
}
