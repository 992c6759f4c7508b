package enums

// OutboxDLQReason records why the publisher stopped retrying an event.
type OutboxDLQReason string

const (
	// OutboxDLQReasonUnresolvable marks rows that cannot be decoded or routed.
	OutboxDLQReasonUnresolvable OutboxDLQReason = "unresolvable"
	// OutboxDLQReasonNonRetryable marks publishes the broker rejected outright.
	OutboxDLQReasonNonRetryable OutboxDLQReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQReason = "max_attempts"
)

func (r OutboxDLQReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonUnresolvable, OutboxDLQReasonNonRetryable, OutboxDLQReasonMaxAttempts:
		return true
	}
	return false
}
