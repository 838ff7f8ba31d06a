package myevents

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type EventEnvelope struct {
	UID           string
	CreatedAt     time.Time
	Topic         string
	AggregateUID  string
	EventTypeName string
	EventPayload  string `datastore:",noindex"`
	Published     bool
}

func (e EventEnvelope) String() string {
	return e.Topic + "." + e.EventTypeName + "." + e.AggregateUID
}

type Event interface {
	GetEventTypeName() string
	GetAggregateName() string
}

// PushRequest is what a pubsub push-subscription posts to its endpoint.
type PushRequest struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}

type PushMessage struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Data       []byte            `json:"data"`
	ID         string            `json:"message_id"`
}

func ParseEventEnvelope(r io.Reader) (EventEnvelope, error) {
	msg := PushRequest{}
	err := json.NewDecoder(r).Decode(&msg)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("error parsing push-request: %s", err)
	}

	envlp := EventEnvelope{}
	err = json.Unmarshal(msg.Message.Data, &envlp)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("error parsing envelope: %s", err)
	}

	return envlp, nil
}

// NewPushRequest wraps an envelope the way pubsub would deliver it.
func NewPushRequest(subscription string, envelope EventEnvelope) (PushRequest, error) {
	envelopeBytes, err := json.Marshal(envelope)
	if err != nil {
		return PushRequest{}, fmt.Errorf("error marshalling envelope: %s", err)
	}
	return PushRequest{
		Message: PushMessage{
			Data: envelopeBytes,
			ID:   envelope.UID,
		},
		Subscription: subscription,
	}, nil
}
