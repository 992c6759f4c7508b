package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox/payloads"
)

func TestEventRegistryResolveCollectionCreated(t *testing.T) {
	reg := newTestEventRegistry(t)
	payerID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventCollectionCreated,
		AggregateType: enums.AggregateCollection,
		AggregateID:   uuid.New(),
		Payload: envelopeFor(t, payloads.CollectionCreatedEvent{
			CollectionID: uuid.New(),
			TotalAmount:  10000,
			Currency:     enums.CurrencyINR,
			PaymentMode:  enums.PaymentModeSplit,
			PayerIDs:     []uuid.UUID{payerID},
		}),
	})
	require.NoError(t, err)
	require.Equal(t, "collections-topic", resolved.Descriptor.Topic)
	require.Equal(t, enums.EventCollectionCreated, resolved.Descriptor.EventType)
	require.NotEmpty(t, resolved.Envelope.EventID)
	require.False(t, resolved.Envelope.OccurredAt.IsZero())

	payload, ok := resolved.Payload.(*payloads.CollectionCreatedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	require.Equal(t, []uuid.UUID{payerID}, payload.PayerIDs)
	require.EqualValues(t, 10000, payload.TotalAmount)
}

func TestEventRegistryPaymentEventsShareTopic(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, eventType := range []enums.OutboxEventType{enums.EventPaymentSucceeded, enums.EventPaymentFailed} {
		resolved, err := reg.Resolve(models.OutboxEvent{
			EventType:     eventType,
			AggregateType: enums.AggregatePayment,
			AggregateID:   uuid.New(),
			Payload: envelopeFor(t, payloads.PaymentStatusEvent{
				PaymentID: uuid.New(),
				Provider:  enums.ProviderStripe,
				Amount:    2500,
				Status:    enums.PaymentStatusSucceeded,
			}),
		})
		require.NoError(t, err, eventType)
		require.Equal(t, "collections-topic", resolved.Descriptor.Topic)
		require.IsType(t, &payloads.PaymentStatusEvent{}, resolved.Payload)
	}
	require.Equal(t, []string{"collections-topic"}, reg.Topics())
}

func TestEventRegistryRejectsUndeliverableRows(t *testing.T) {
	reg := newTestEventRegistry(t)
	valid := envelopeFor(t, payloads.PayerStatusChangedEvent{PayerID: uuid.New()})

	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     enums.OutboxEventType("order_created"),
			AggregateType: enums.AggregateCollection,
			AggregateID:   uuid.New(),
			Payload:       valid,
		},
		"aggregate mismatch": {
			EventType:     enums.EventPayerStatusChanged,
			AggregateType: enums.AggregateCollection,
			AggregateID:   uuid.New(),
			Payload:       valid,
		},
		"nil aggregate": {
			EventType:     enums.EventPayerStatusChanged,
			AggregateType: enums.AggregatePayer,
			Payload:       valid,
		},
		"null data": {
			EventType:     enums.EventPayerStatusChanged,
			AggregateType: enums.AggregatePayer,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1,"eventId":"e","data":null}`),
		},
		"payload shape": {
			EventType:     enums.EventPayerStatusChanged,
			AggregateType: enums.AggregatePayer,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1,"eventId":"e","data":{"payer_id":42}}`),
		},
	}
	for name, event := range cases {
		_, err := reg.Resolve(event)
		var nonRetry NonRetryableError
		require.True(t, errors.As(err, &nonRetry), "%s: got %v", name, err)
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{CollectionsTopic: "  "})
	require.ErrorIs(t, err, errTopicRequired)
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{CollectionsTopic: "collections-topic"})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return raw
}
