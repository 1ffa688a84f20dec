// Package events publishes asset-lifecycle domain events to Kafka for
// downstream consumers (reporting, notifications). Publishing is
// fire-and-forget: a full queue drops the event rather than blocking a
// request.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type EventType string

const (
	RequestSubmitted EventType = "request_submitted"
	RequestApproved  EventType = "request_approved"
	RequestRejected  EventType = "request_rejected"
	AssetReturned    EventType = "asset_returned"
	EmployeeRemoved  EventType = "employee_removed"
	PaymentCompleted EventType = "payment_completed"
)

// Event is the wire payload. CompanyName keys the message so one tenant's
// events stay ordered per partition.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	CompanyName   string    `json:"companyName"`
	HREmail       string    `json:"hrEmail,omitempty"`
	EmployeeEmail string    `json:"employeeEmail,omitempty"`
	AssetID       string    `json:"assetId,omitempty"`
	RequestID     string    `json:"requestId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Producer is what handlers emit through; Nop is used when Kafka is not
// configured.
type Producer interface {
	Emit(eventType EventType, event Event)
	Close()
}

// KafkaWriter is the subset of kafka.Writer the producer needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

func NewKafkaProducer(brokers []string, topic string, logger *zap.Logger) *KafkaProducer {
	p := &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		events:    make(chan Event, 1000),
		logger:    logger.Named("events"),
		closeChan: make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// NewWithWriter wires a custom writer. Test use.
func NewWithWriter(w KafkaWriter, logger *zap.Logger) *KafkaProducer {
	p := &KafkaProducer{
		writer:    w,
		events:    make(chan Event, 1000),
		logger:    logger.Named("events"),
		closeChan: make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

func (p *KafkaProducer) Emit(eventType EventType, event Event) {
	event.Type = eventType
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	select {
	case p.events <- event:
	default:
		p.logger.Warn("event queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("company", event.CompanyName),
		)
	}
}

func (p *KafkaProducer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.send(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *KafkaProducer) send(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to serialize event", zap.Error(err), zap.String("event_id", event.ID))
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CompanyName),
		Value: value,
	}); err != nil {
		p.logger.Error("failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
		)
	}
}

func (p *KafkaProducer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("failed to close kafka writer", zap.Error(err))
	}
}

// Nop drops everything. Used when KAFKA_BROKERS is unset.
type Nop struct{}

func (Nop) Emit(EventType, Event) {}
func (Nop) Close()                {}
