package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EnvelopeVersion is the envelope layout Emit writes.
const EnvelopeVersion = 1

const (
	ActorAPI     = "api"
	ActorWebhook = "webhook"
	ActorCron    = "cron"
)

var (
	ErrEnvelopeVersion = errors.New("unsupported envelope version")
	ErrEnvelopeEventID = errors.New("envelope missing event id")
	ErrEnvelopeData    = errors.New("envelope missing data")
)

// ActorRef names what produced the event. Kind is one of the Actor
// constants; ID narrows it to a webhook event id or job name.
type ActorRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// PayloadEnvelope wraps every outbox payload. Consumers dedupe on EventID.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload and rejects envelopes a publisher
// could never deliver.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch {
	case env.Version < 1 || env.Version > EnvelopeVersion:
		return PayloadEnvelope{}, fmt.Errorf("%w: %d", ErrEnvelopeVersion, env.Version)
	case env.EventID == "":
		return PayloadEnvelope{}, ErrEnvelopeEventID
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, ErrEnvelopeData
	}
	return env, nil
}
