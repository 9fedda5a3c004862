// Package events publishes ledger mutations to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rongwang/rentledger/internal/metrics"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/rongwang/rentledger/internal/repository"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	TypeEntryCreated = "ledger_entry.created"
	TypeEntryDeleted = "ledger_entry.deleted"
)

// LedgerEvent is emitted after an entry is appended or removed.
// Total is the refolded total of the entry's key after the change.
type LedgerEvent struct {
	Type       string             `json:"type"`
	Key        string             `json:"key"`
	Entry      models.LedgerEntry `json:"entry"`
	Total      decimal.Decimal    `json:"total"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// NewLedgerEvent builds the event for entry
func NewLedgerEvent(eventType string, entry models.LedgerEntry, total decimal.Decimal, at time.Time) LedgerEvent {
	return LedgerEvent{
		Type:       eventType,
		Key:        repository.KeyOf(entry).String(),
		Entry:      entry,
		Total:      total,
		OccurredAt: at.UTC(),
	}
}

// Encode renders the event as a Kafka message keyed by ledger key,
// so every change of one key lands on the same partition in order.
func Encode(ev LedgerEvent) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal ledger event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.Key),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}, nil
}

// Publisher delivers ledger events
type Publisher interface {
	Publish(ctx context.Context, ev LedgerEvent) error
	Close() error
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, LedgerEvent) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic.
// Writes are asynchronous: delivery failures surface in completed, not in Publish.
type KafkaPublisher struct {
	writer  messageWriter
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewKafkaPublisher creates an async writer acknowledged by the partition leader
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger, m *metrics.Metrics) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	p := newKafkaPublisher(w, log, m)
	w.Completion = p.completed
	return p
}

func newKafkaPublisher(w messageWriter, log *slog.Logger, m *metrics.Metrics) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		log:     log.With(slog.String("component", "kafka-publisher")),
		metrics: m,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev LedgerEvent) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write ledger event: %w", err)
	}
	p.log.Debug("Queued ledger event", slog.String("type", ev.Type), slog.String("key", ev.Key))
	return nil
}

// completed is called by the writer once a batch is delivered or given up on
func (p *KafkaPublisher) completed(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range msgs {
		p.metrics.PublishError()
		p.log.Warn("Failed to deliver ledger event",
			slog.String("key", string(msg.Key)),
			slog.String("error", err.Error()),
		)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
