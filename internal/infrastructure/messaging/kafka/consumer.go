// Package kafka carries analysis requests and results over Kafka. The
// consumer processes messages on a bounded goroutine pool, retries failed
// handlers with exponential backoff and moves exhausted messages to a dead
// letter topic.
package kafka

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one message. Returning an error marked with
// Permanent skips the remaining retries.
type MessageHandler func(ctx context.Context, msg *Message) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return stderrors.As(err, &p)
}

// Message outcome labels.
const (
	StatusProcessed    = "processed"
	StatusDeadLettered = "dead_lettered"
	StatusDropped      = "dropped"
	StatusSkipped      = "skipped"
	StatusInterrupted  = "interrupted"
)

// RetryConfig defines retry behaviour.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers           []string
	GroupID           string
	Topics            []string
	AutoOffsetReset   string
	Concurrency       int
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	MaxWait           time.Duration
	Security          SecurityConfig
	Retry             RetryConfig
}

// ConsumerStats is a snapshot of consumer counters.
type ConsumerStats struct {
	Consumed     int64
	Processed    int64
	Failed       int64
	Retried      int64
	DeadLettered int64
	Lag          int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.ReaderStats
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithDeadLetter sends exhausted messages through p to
// RetryConfig.DeadLetterTopic.
func WithDeadLetter(p Publisher) ConsumerOption {
	return func(c *Consumer) { c.deadLetter = p }
}

func WithConsumerMetrics(m *prometheus.AppMetrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

// Consumer reads a consumer group and dispatches messages to per-topic
// handlers.
type Consumer struct {
	reader     ReaderInterface
	config     ConsumerConfig
	logger     logging.Logger
	metrics    *prometheus.AppMetrics
	deadLetter Publisher

	handlers map[string]MessageHandler
	mu       sync.RWMutex

	running atomic.Bool

	consumed     atomic.Int64
	processed    atomic.Int64
	failed       atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
	lag          atomic.Int64
}

func applyConsumerDefaults(cfg *ConsumerConfig) {
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 3 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 500 * time.Millisecond
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.RetryBackoff == 0 {
		cfg.Retry.RetryBackoff = time.Second
	}
	if cfg.Retry.MaxRetryBackoff == 0 {
		cfg.Retry.MaxRetryBackoff = 30 * time.Second
	}
}

// NewConsumer creates a group reader over cfg.Topics.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger, opts ...ConsumerOption) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	applyConsumerDefaults(&cfg)

	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	dialer.TLS = tlsCfg
	mech, err := cfg.Security.mechanism()
	if err != nil {
		return nil, err
	}
	dialer.SASLMechanism = mech

	readerCfg := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       cfg.Topics,
		MinBytes:          1,
		MaxBytes:          10 * 1024 * 1024,
		MaxWait:           cfg.MaxWait,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StartOffset:       kafka.FirstOffset,
		Dialer:            dialer,
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}
	return NewConsumerWithReader(kafka.NewReader(readerCfg), cfg, logger, opts...), nil
}

// NewConsumerWithReader wraps an existing reader.
func NewConsumerWithReader(r ReaderInterface, cfg ConsumerConfig, logger logging.Logger, opts ...ConsumerOption) *Consumer {
	applyConsumerDefaults(&cfg)
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Consumer{
		reader:   r,
		config:   cfg,
		logger:   logger,
		handlers: make(map[string]MessageHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers handler for topic.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("subscribed to topic", logging.String("topic", topic))
}

func (c *Consumer) handler(topic string) (MessageHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[topic]
	return h, ok
}

// Run consumes until ctx is cancelled. At most Concurrency messages are in
// flight; fetching pauses while the pool is full. In-flight messages are
// waited for before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	g := new(errgroup.Group)
	g.SetLimit(c.config.Concurrency)
	c.logger.Info("Kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Int("concurrency", c.config.Concurrency))

	for ctx.Err() == nil {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error("fetch failed", logging.Err(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		c.consumed.Add(1)
		if km.HighWaterMark > 0 {
			c.lag.Store(km.HighWaterMark - km.Offset - 1)
		}
		g.Go(func() error {
			c.dispatch(ctx, km)
			return nil
		})
	}
	_ = g.Wait()
	c.logger.Info("Kafka consumer stopped", logging.Int64("consumed", c.consumed.Load()))
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, km kafka.Message) {
	if c.metrics != nil {
		c.metrics.ActiveWorkers.WithLabelValues(c.config.GroupID).Inc()
		defer c.metrics.ActiveWorkers.WithLabelValues(c.config.GroupID).Dec()
	}
	start := time.Now()
	msg := fromKafkaMessage(km)

	status := StatusProcessed
	if h, ok := c.handler(msg.Topic); !ok {
		c.logger.Warn("no handler for topic", logging.String("topic", msg.Topic))
		status = StatusSkipped
	} else if err := c.processMessage(ctx, msg, h); err != nil {
		if ctx.Err() != nil {
			// Left uncommitted; the group redelivers it.
			c.logger.Warn("message processing interrupted",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset))
			prometheus.RecordMessage(c.metrics, msg.Topic, StatusInterrupted, time.Since(start))
			return
		}
		c.failed.Add(1)
		status = c.sendToDeadLetter(ctx, msg, err)
	} else {
		c.processed.Add(1)
	}

	if err := c.reader.CommitMessages(ctx, km); err != nil {
		c.logger.Error("commit failed",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
	}
	prometheus.RecordMessage(c.metrics, msg.Topic, status, time.Since(start))
}

func (c *Consumer) processMessage(ctx context.Context, msg *Message, handler MessageHandler) error {
	err := handler(ctx, msg)
	if err == nil || IsPermanent(err) {
		return err
	}

	backoff := c.config.Retry.RetryBackoff
	for i := 0; i < c.config.Retry.MaxRetries; i++ {
		c.retried.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err = handler(ctx, msg); err == nil || IsPermanent(err) {
			return err
		}
		backoff *= 2
		if backoff > c.config.Retry.MaxRetryBackoff {
			backoff = c.config.Retry.MaxRetryBackoff
		}
	}
	return err
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *Message, cause error) string {
	c.logger.Error("message processing failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Bool("permanent", IsPermanent(cause)),
		logging.Err(cause))

	if c.deadLetter == nil || c.config.Retry.DeadLetterTopic == "" {
		return StatusDropped
	}
	headers := make(map[string]string, len(msg.Headers)+5)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["original_topic"] = msg.Topic
	headers["original_partition"] = strconv.Itoa(msg.Partition)
	headers["original_offset"] = strconv.FormatInt(msg.Offset, 10)
	headers["error_code"] = string(errors.GetCode(cause))
	headers["error_message"] = cause.Error()

	dl := &ProducerMessage{
		Topic:   c.config.Retry.DeadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := c.deadLetter.Publish(ctx, dl); err != nil {
		c.logger.Error("failed to send to dead letter topic", logging.Err(err))
		return StatusDropped
	}
	c.deadLettered.Add(1)
	return StatusDeadLettered
}

// Stats returns a snapshot of the consumer counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Consumed:     c.consumed.Load(),
		Processed:    c.processed.Load(),
		Failed:       c.failed.Load(),
		Retried:      c.retried.Load(),
		DeadLettered: c.deadLettered.Load(),
		Lag:          c.lag.Load(),
	}
}

// Running reports whether Run is active.
func (c *Consumer) Running() bool { return c.running.Load() }

// Close closes the reader. Call it after Run has returned.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to close reader")
	}
	return nil
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "Brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "GroupID required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "Topics required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "invalid AutoOffsetReset")
	}
	if cfg.Retry.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "MaxRetries must be >= 0")
	}
	return cfg.Security.validate()
}
