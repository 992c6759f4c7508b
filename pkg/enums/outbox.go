package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateCollection OutboxAggregateType = "collection"
	AggregatePayer      OutboxAggregateType = "payer"
	AggregatePayment    OutboxAggregateType = "payment"
)

var aggregateTypes = []OutboxAggregateType{AggregateCollection, AggregatePayer, AggregatePayment}

func (a OutboxAggregateType) IsValid() bool { return oneOf(a, aggregateTypes) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, aggregateTypes, nil)
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute on published messages.
type OutboxEventType string

const (
	EventCollectionCreated       OutboxEventType = "collection_created"
	EventCollectionStatusChanged OutboxEventType = "collection_status_changed"
	EventPayerStatusChanged      OutboxEventType = "payer_status_changed"
	EventPaymentSucceeded        OutboxEventType = "payment_succeeded"
	EventPaymentFailed           OutboxEventType = "payment_failed"
)

var outboxEventTypes = []OutboxEventType{
	EventCollectionCreated,
	EventCollectionStatusChanged,
	EventPayerStatusChanged,
	EventPaymentSucceeded,
	EventPaymentFailed,
}

func (e OutboxEventType) IsValid() bool { return oneOf(e, outboxEventTypes) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, outboxEventTypes, nil)
}
