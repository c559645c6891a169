// Package relay publishes audit outbox entries to Kafka.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"gatehouse/internal/audit/models"
	id "gatehouse/pkg/domain"
)

// Outbox is the relay's view of the audit store.
type Outbox interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Pending(ctx context.Context, limit int) ([]models.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []id.AuditLogID, at time.Time) error
}

// Producer is satisfied by *kgo.Client.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Relay struct {
	outbox    Outbox
	producer  Producer
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func New(outbox Outbox, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		producer:  producer,
		topic:     topic,
		interval:  2 * time.Second,
		batchSize: 100,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains the outbox every interval until ctx is cancelled. A failed batch
// stays unpublished and is retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.logger.InfoContext(ctx, "audit relay started", "topic", r.topic, "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(context.WithoutCancel(ctx), "audit relay stopped")
			return nil
		case <-ticker.C:
			for {
				n, err := r.PublishBatch(ctx)
				if err != nil {
					r.logger.ErrorContext(ctx, "audit relay batch failed", "error", err)
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// PublishBatch publishes one batch and marks it published in the same
// transaction that locked the rows. It returns the number of entries sent.
func (r *Relay) PublishBatch(ctx context.Context) (int, error) {
	var sent int
	err := r.outbox.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.outbox.Pending(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		records := make([]*kgo.Record, len(entries))
		ids := make([]id.AuditLogID, len(entries))
		for i, e := range entries {
			records[i] = &kgo.Record{
				Topic: r.topic,
				Key:   []byte(e.AggregateID),
				Value: e.Payload,
				Headers: []kgo.RecordHeader{
					{Key: "event_type", Value: []byte(e.EventType)},
					{Key: "aggregate_type", Value: []byte(e.AggregateType)},
				},
				Timestamp: e.CreatedAt,
			}
			ids[i] = e.ID
		}
		if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return fmt.Errorf("produce audit events: %w", err)
		}
		if err := r.outbox.MarkPublished(ctx, ids, r.now().UTC()); err != nil {
			return err
		}
		sent = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if sent > 0 {
		r.logger.DebugContext(ctx, "audit events published", "count", sent, "topic", r.topic)
	}
	return sent, nil
}
