package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxErrorBackoff       = 10 * time.Second
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// publisher hands a message to the broker client; the returned result
// resolves once the broker acknowledges it.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	DLQRepository    dlqRepository
	PublisherFactory publisherFactory
}

// Service drains outbox_events to Pub/Sub. Each batch is claimed inside one
// transaction: every message is handed to the client first so it can batch
// them, then all acks are awaited and the rows settled.
type Service struct {
	logg           *logger.Logger
	db             dbClient
	pubsub         pubSubClient
	repo           outboxRepository
	registry       registryResolver
	dlq            dlqRepository
	factory        publisherFactory
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration

	mu         sync.Mutex
	publishers map[string]publisher
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	s := &Service{
		logg:           params.Logger,
		db:             params.DB,
		pubsub:         params.PubSub,
		repo:           params.Repository,
		registry:       params.Registry,
		dlq:            params.DLQRepository,
		factory:        params.PublisherFactory,
		batchSize:      params.Config.Outbox.BatchSize,
		maxAttempts:    params.Config.Outbox.MaxAttempts,
		pollInterval:   time.Duration(params.Config.Outbox.PollIntervalMS) * time.Millisecond,
		publishTimeout: defaultPublishTimeout,
		publishers:     make(map[string]publisher),
	}
	if s.factory == nil {
		s.factory = s.gcpPublisher
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}
	return s, nil
}

// Run polls until ctx ends. A full batch is followed immediately by another;
// errors back off exponentially up to maxErrorBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not ready: %w", err)
	}
	defer s.stopPublishers()

	delay := s.pollInterval
	for {
		claimed, err := s.processBatch(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			s.logg.Error(ctx, "outbox.batch_failed", err)
			delay = min(max(delay, s.pollInterval)*2, maxErrorBackoff)
		case claimed >= s.batchSize:
			delay = 0
		default:
			delay = s.pollInterval
		}
		if err := sleep(ctx, jitter(delay)); err != nil {
			return err
		}
	}
}

// delivery tracks one claimed row through publish and settlement.
type delivery struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	result   publishResult
	err      error
	reason   enums.OutboxDLQReason
}

func (d *delivery) topic() string {
	if d.resolved == nil {
		return ""
	}
	return d.resolved.Descriptor.Topic
}

func (d *delivery) fail(err error, reason enums.OutboxDLQReason) {
	d.err = err
	d.reason = reason
}

// processBatch claims, publishes and settles one batch. It returns how many
// rows were claimed.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(events)
		if claimed == 0 {
			return nil
		}
		deliveries := s.publishAll(ctx, events)

		var published, retried, parked int
		for i := range deliveries {
			state, err := s.settle(ctx, tx, &deliveries[i])
			if err != nil {
				return err
			}
			switch state {
			case "published":
				published++
			case "retry":
				retried++
			default:
				parked++
			}
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"claimed":       claimed,
			"published":     published,
			"retry":         retried,
			"dead_lettered": parked,
		}), "outbox.batch")
		return nil
	})
	return claimed, err
}

func (s *Service) publishAll(ctx context.Context, events []models.OutboxEvent) []delivery {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	deliveries := make([]delivery, len(events))
	for i, event := range events {
		d := &deliveries[i]
		d.event = event
		resolved, err := s.registry.Resolve(event)
		if err != nil {
			d.fail(err, enums.OutboxDLQReasonUnresolvable)
			continue
		}
		d.resolved = resolved
		pub := s.factory(resolved.Descriptor.Topic)
		if pub == nil {
			d.fail(fmt.Errorf("no publisher for topic %q", resolved.Descriptor.Topic), enums.OutboxDLQReasonNonRetryable)
			continue
		}
		d.result = pub.Publish(ctx, message(event, resolved))
		if d.result == nil {
			d.fail(fmt.Errorf("publisher for %q returned no result", resolved.Descriptor.Topic), enums.OutboxDLQReasonNonRetryable)
		}
	}
	for i := range deliveries {
		d := &deliveries[i]
		if d.result == nil {
			continue
		}
		if _, err := d.result.Get(ctx); err != nil {
			d.err = err
			if permanent(err) {
				d.reason = enums.OutboxDLQReasonNonRetryable
			}
		}
	}
	return deliveries
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, d *delivery) (string, error) {
	id := d.event.ID
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     id.String(),
		"event_type":    string(d.event.EventType),
		"aggregate_id":  d.event.AggregateID.String(),
		"attempt_count": d.event.AttemptCount,
		"topic":         d.topic(),
	})

	if d.err == nil {
		if err := s.repo.MarkPublishedTx(tx, id); err != nil {
			return "", fmt.Errorf("mark published %s: %w", id, err)
		}
		s.logg.Debug(logCtx, "outbox.published")
		return "published", nil
	}

	logCtx = s.logg.WithField(logCtx, "error", d.err.Error())
	if d.reason == "" {
		if d.event.AttemptCount+1 < s.maxAttempts {
			if err := s.repo.MarkFailedTx(tx, id, d.err); err != nil {
				return "", fmt.Errorf("mark failed %s: %w", id, err)
			}
			s.logg.Warn(logCtx, "outbox.publish_retry")
			return "retry", nil
		}
		d.reason = enums.OutboxDLQReasonMaxAttempts
	}

	s.logg.Warn(s.logg.WithField(logCtx, "dlq_reason", string(d.reason)), "outbox.dead_lettered")
	msg := d.err.Error()
	if err := s.dlq.InsertTx(tx, models.OutboxDLQ{
		EventID:       id,
		EventType:     d.event.EventType,
		AggregateType: d.event.AggregateType,
		AggregateID:   d.event.AggregateID,
		Payload:       d.event.Payload,
		ErrorReason:   d.reason,
		ErrorMessage:  &msg,
		AttemptCount:  d.event.AttemptCount + 1,
		FailedAt:      time.Now().UTC(),
	}); err != nil {
		return "", fmt.Errorf("dead-letter %s: %w", id, err)
	}
	if err := s.repo.MarkTerminalTx(tx, id, d.err, s.maxAttempts); err != nil {
		return "", fmt.Errorf("mark terminal %s: %w", id, err)
	}
	return "dead_lettered", nil
}

func message(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"schema_version": strconv.Itoa(resolved.Envelope.Version),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// permanent reports errors a retry cannot fix: rows the registry marked as
// such and requests the broker rejected as malformed or unauthorized.
func permanent(err error) bool {
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return true
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.PermissionDenied:
		return true
	}
	return false
}

func (s *Service) gcpPublisher(topic string) publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pub, ok := s.publishers[topic]; ok {
		return pub
	}
	handle := s.pubsub.Publisher(topic)
	if handle == nil {
		return nil
	}
	pub := gcpTopic{handle}
	s.publishers[topic] = pub
	return pub
}

// stopPublishers flushes buffered messages and releases publisher goroutines.
func (s *Service) stopPublishers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, pub := range s.publishers {
		if t, ok := pub.(gcpTopic); ok {
			t.handle.Stop()
		}
		delete(s.publishers, topic)
	}
}

type gcpTopic struct {
	handle *gcppubsub.Publisher
}

func (t gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return t.handle.Publish(ctx, msg)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// jitter adds up to 25% so idle publishers do not poll in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(d/4+1)
}
