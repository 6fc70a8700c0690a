package kafka

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/internal/testutil"
	"github.com/turtacn/helmkit/pkg/errors"
)

// fakeReader hands out queued messages, then blocks until cancelled.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	fetchErr  error
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErr != nil {
		err := r.fetchErr
		r.fetchErr = nil
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*ProducerMessage
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg *ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) published() []*ProducerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*ProducerMessage(nil), p.msgs...)
}

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers:     []string{"localhost:9092"},
		GroupID:     "helmkit-test",
		Topics:      []string{TopicAnalysisRequested},
		Concurrency: 2,
		Retry: RetryConfig{
			MaxRetries:      2,
			RetryBackoff:    time.Millisecond,
			MaxRetryBackoff: 2 * time.Millisecond,
			DeadLetterTopic: TopicAnalysisDLQ,
		},
	}
}

func msgAt(offset int64) kafka.Message {
	return kafka.Message{
		Topic:   TopicAnalysisRequested,
		Offset:  offset,
		Key:     []byte("k"),
		Value:   []byte(`{"event_type":"analysis.requested"}`),
		Headers: []kafka.Header{{Key: "trace_id", Value: []byte("t-1")}},
	}
}

// runUntilCommitted runs c until the reader has seen n commits.
func runUntilCommitted(t *testing.T, c *Consumer, r *fakeReader, n int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return r.commits() >= n }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumer_ProcessesAndCommits(t *testing.T) {
	t.Parallel()
	r := newFakeReader(msgAt(1), msgAt(2), msgAt(3))
	c := NewConsumerWithReader(r, testConsumerConfig(), nil)

	var seen atomic.Int32
	c.Subscribe(TopicAnalysisRequested, func(_ context.Context, msg *Message) error {
		assert.Equal(t, "t-1", msg.Headers["trace_id"])
		seen.Add(1)
		return nil
	})

	runUntilCommitted(t, c, r, 3)
	assert.EqualValues(t, 3, seen.Load())
	stats := c.Stats()
	assert.EqualValues(t, 3, stats.Consumed)
	assert.EqualValues(t, 3, stats.Processed)
	assert.Zero(t, stats.Failed)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	r := newFakeReader(msgAt(1))
	dlq := &fakePublisher{}
	c := NewConsumerWithReader(r, testConsumerConfig(), nil, WithDeadLetter(dlq))

	var calls atomic.Int32
	c.Subscribe(TopicAnalysisRequested, func(context.Context, *Message) error {
		if calls.Add(1) < 2 {
			return stderrors.New("transient")
		}
		return nil
	})

	runUntilCommitted(t, c, r, 1)
	assert.EqualValues(t, 2, calls.Load())
	assert.EqualValues(t, 1, c.Stats().Retried)
	assert.Empty(t, dlq.published())
}

func TestConsumer_ExhaustedRetriesGoToDeadLetter(t *testing.T) {
	t.Parallel()
	r := newFakeReader(msgAt(7))
	dlq := &fakePublisher{}
	c := NewConsumerWithReader(r, testConsumerConfig(), nil, WithDeadLetter(dlq))

	var calls atomic.Int32
	c.Subscribe(TopicAnalysisRequested, func(context.Context, *Message) error {
		calls.Add(1)
		return errors.New(errors.ErrCodeServiceUnavailable, "registry down")
	})

	runUntilCommitted(t, c, r, 1)
	assert.EqualValues(t, 3, calls.Load())

	out := dlq.published()
	require.Len(t, out, 1)
	assert.Equal(t, TopicAnalysisDLQ, out[0].Topic)
	assert.Equal(t, TopicAnalysisRequested, out[0].Headers["original_topic"])
	assert.Equal(t, "7", out[0].Headers["original_offset"])
	assert.Equal(t, string(errors.ErrCodeServiceUnavailable), out[0].Headers["error_code"])
	assert.Contains(t, out[0].Headers["error_message"], "registry down")
	assert.Equal(t, "t-1", out[0].Headers["trace_id"])
	assert.EqualValues(t, 1, c.Stats().DeadLettered)
}

func TestConsumer_PermanentErrorSkipsRetries(t *testing.T) {
	t.Parallel()
	r := newFakeReader(msgAt(1))
	dlq := &fakePublisher{}
	c := NewConsumerWithReader(r, testConsumerConfig(), nil, WithDeadLetter(dlq))

	var calls atomic.Int32
	c.Subscribe(TopicAnalysisRequested, func(context.Context, *Message) error {
		calls.Add(1)
		return Permanent(stderrors.New("bad envelope"))
	})

	runUntilCommitted(t, c, r, 1)
	assert.EqualValues(t, 1, calls.Load())
	assert.Len(t, dlq.published(), 1)
	assert.Zero(t, c.Stats().Retried)
}

func TestConsumer_DeadLetterFailureStillCommits(t *testing.T) {
	t.Parallel()
	r := newFakeReader(msgAt(1))
	dlq := &fakePublisher{err: stderrors.New("broker gone")}
	log := testutil.NewMockLogger()
	c := NewConsumerWithReader(r, testConsumerConfig(), log, WithDeadLetter(dlq))
	c.Subscribe(TopicAnalysisRequested, func(context.Context, *Message) error {
		return Permanent(stderrors.New("bad"))
	})

	runUntilCommitted(t, c, r, 1)
	assert.True(t, log.HasMessage("error", "failed to send to dead letter topic"))
	assert.Zero(t, c.Stats().DeadLettered)
}

func TestConsumer_NoHandlerSkips(t *testing.T) {
	t.Parallel()
	m := msgAt(1)
	m.Topic = "other"
	r := newFakeReader(m)
	log := testutil.NewMockLogger()
	c := NewConsumerWithReader(r, testConsumerConfig(), log)

	runUntilCommitted(t, c, r, 1)
	assert.True(t, log.HasMessage("warn", "no handler for topic"))
}

func TestConsumer_FetchErrorIsRetried(t *testing.T) {
	t.Parallel()
	r := newFakeReader(msgAt(1))
	r.fetchErr = stderrors.New("rebalance")
	c := NewConsumerWithReader(r, testConsumerConfig(), nil)
	c.Subscribe(TopicAnalysisRequested, func(context.Context, *Message) error { return nil })

	runUntilCommitted(t, c, r, 1)
	assert.EqualValues(t, 1, c.Stats().Processed)
}

func TestConsumer_BoundedConcurrency(t *testing.T) {
	t.Parallel()
	var msgs []kafka.Message
	for i := 0; i < 8; i++ {
		msgs = append(msgs, msgAt(int64(i)))
	}
	r := newFakeReader(msgs...)
	c := NewConsumerWithReader(r, testConsumerConfig(), nil)

	var inFlight, peak atomic.Int32
	c.Subscribe(TopicAnalysisRequested, func(context.Context, *Message) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	runUntilCommitted(t, c, r, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestConsumer_RunTwice(t *testing.T) {
	t.Parallel()
	r := newFakeReader()
	c := NewConsumerWithReader(r, testConsumerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()
	require.Eventually(t, c.Running, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Run(ctx), ErrAlreadyRunning)
	cancel()
	<-done

	require.NoError(t, c.Close())
	assert.True(t, r.closed)
}

func TestConsumer_RecordsMetrics(t *testing.T) {
	t.Parallel()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	r := newFakeReader(msgAt(1))
	c := NewConsumerWithReader(r, testConsumerConfig(), nil, WithConsumerMetrics(prometheus.NewAppMetrics(collector)))
	c.Subscribe(TopicAnalysisRequested, func(context.Context, *Message) error { return nil })

	runUntilCommitted(t, c, r, 1)

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `messages_total{status="processed",topic="helmkit.analysis.requested"} 1`)
}

func TestPermanent(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Permanent(nil))
	base := stderrors.New("x")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}

func TestValidateConsumerConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*ConsumerConfig)
		ok     bool
	}{
		{"valid", func(*ConsumerConfig) {}, true},
		{"no brokers", func(c *ConsumerConfig) { c.Brokers = nil }, false},
		{"no group", func(c *ConsumerConfig) { c.GroupID = "" }, false},
		{"no topics", func(c *ConsumerConfig) { c.Topics = nil }, false},
		{"bad offset reset", func(c *ConsumerConfig) { c.AutoOffsetReset = "middle" }, false},
		{"negative retries", func(c *ConsumerConfig) { c.Retry.MaxRetries = -1 }, false},
		{"sasl without mechanism", func(c *ConsumerConfig) { c.Security.SASLEnabled = true }, false},
		{"tls without cert", func(c *ConsumerConfig) { c.Security.TLSEnabled = true }, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConsumerConfig()
			tt.mutate(&cfg)
			err := ValidateConsumerConfig(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
			}
		})
	}
}
