package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"gatehouse/internal/audit/models"
	id "gatehouse/pkg/domain"
)

type fakeOutbox struct {
	pending   []models.OutboxEntry
	published map[id.AuditLogID]time.Time
	txCount   int
}

func (f *fakeOutbox) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txCount++
	return fn(ctx)
}

func (f *fakeOutbox) Pending(_ context.Context, limit int) ([]models.OutboxEntry, error) {
	out := make([]models.OutboxEntry, 0, limit)
	for _, e := range f.pending {
		if _, done := f.published[e.ID]; done {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []id.AuditLogID, at time.Time) error {
	for _, entryID := range ids {
		f.published[entryID] = at
	}
	return nil
}

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func newOutbox(n int) *fakeOutbox {
	f := &fakeOutbox{published: map[id.AuditLogID]time.Time{}}
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := range n {
		f.pending = append(f.pending, models.OutboxEntry{
			ID:            id.NewAuditLogID(),
			AggregateType: "user",
			AggregateID:   "user-1",
			EventType:     "add_to_blacklist",
			Payload:       []byte(`{"action":"add_to_blacklist"}`),
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		})
	}
	return f
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishBatch(t *testing.T) {
	outbox := newOutbox(3)
	producer := &fakeProducer{}
	r := New(outbox, producer, "gatehouse.audit", WithBatchSize(2), quiet())

	n, err := r.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, producer.records, 2)
	rec := producer.records[0]
	assert.Equal(t, "gatehouse.audit", rec.Topic)
	assert.Equal(t, []byte("user-1"), rec.Key)
	assert.Equal(t, outbox.pending[0].Payload, rec.Value)
	assert.Equal(t, kgo.RecordHeader{Key: "event_type", Value: []byte("add_to_blacklist")}, rec.Headers[0])

	n, err = r.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, outbox.published, 3)

	n, err = r.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublishBatchFailureKeepsEntriesPending(t *testing.T) {
	outbox := newOutbox(2)
	producer := &fakeProducer{err: errors.New("broker unavailable")}
	r := New(outbox, producer, "gatehouse.audit", quiet())

	_, err := r.PublishBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Empty(t, outbox.published)

	producer.err = nil
	n, err := r.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	outbox := newOutbox(5)
	producer := &fakeProducer{}
	r := New(outbox, producer, "gatehouse.audit", WithInterval(5*time.Millisecond), WithBatchSize(2), quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return producer.count() == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
