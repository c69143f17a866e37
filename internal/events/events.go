// Package events publishes domain events (reservation.created,
// invoice.deleted, ...) to an external broker. Publishing is best-effort:
// callers log failures and carry on.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	ReservationCreated       = "reservation.created"
	ReservationUpdated       = "reservation.updated"
	ReservationCancelled     = "reservation.cancelled"
	ReservationStatusChanged = "reservation.status_changed"
	InvoiceCreated           = "invoice.created"
	InvoiceUpdated           = "invoice.updated"
	InvoiceDeleted           = "invoice.deleted"
)

// Event is the JSON envelope written to the broker.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

func New(eventType, key string, payload interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Config selects and configures a Publisher.
type Config struct {
	Backend      string // none | kafka | amqp
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPQueue    string
}

// NewPublisher builds the publisher named by cfg.Backend.
func NewPublisher(cfg Config) (Publisher, error) {
	switch cfg.Backend {
	case "", "none":
		return Noop{}, nil
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "amqp":
		return NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
	default:
		return nil, fmt.Errorf("events: unknown backend %q", cfg.Backend)
	}
}
