// Package batch turns analysis request events into analysis reports.
package batch

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/infrastructure/database/redis"
	"github.com/turtacn/helmkit/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// AnalysisRequest is the payload of an analysis.requested event.
type AnalysisRequest struct {
	RequestID    string `json:"request_id,omitempty"`
	Notation     string `json:"notation"`
	Name         string `json:"name,omitempty"`
	SequenceType string `json:"sequence_type,omitempty"`
	Strict       *bool  `json:"strict,omitempty"`
	Archive      bool   `json:"archive,omitempty"`
}

// AnalysisCompleted is the payload of an analysis.completed event.
type AnalysisCompleted struct {
	RequestID string                   `json:"request_id"`
	Report    *notation.AnalysisReport `json:"report"`
}

const defaultLockTTL = 10 * time.Minute

// Option configures an AnalysisWorker.
type Option func(*AnalysisWorker)

// WithJobLock deduplicates redelivered requests. A request ID is claimed for
// ttl and released only when processing fails.
func WithJobLock(l redis.JobLock, ttl time.Duration) Option {
	return func(w *AnalysisWorker) {
		w.lock = l
		if ttl > 0 {
			w.lockTTL = ttl
		}
	}
}

func WithResultTopic(topic string) Option {
	return func(w *AnalysisWorker) { w.resultTopic = topic }
}

// WithSource sets the envelope source of published results.
func WithSource(source string) Option {
	return func(w *AnalysisWorker) { w.source = source }
}

// AnalysisWorker handles analysis.requested messages.
type AnalysisWorker struct {
	svc    notation.Service
	pub    kafka.Publisher
	logger logging.Logger

	lock        redis.JobLock
	lockTTL     time.Duration
	resultTopic string
	source      string
}

func NewAnalysisWorker(svc notation.Service, pub kafka.Publisher, logger logging.Logger, opts ...Option) *AnalysisWorker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	w := &AnalysisWorker{
		svc:         svc,
		pub:         pub,
		logger:      logger,
		lockTTL:     defaultLockTTL,
		resultTopic: kafka.TopicAnalysisCompleted,
		source:      "helmkit-worker",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle is a kafka.MessageHandler. Malformed events fail permanently;
// analysis or publish failures are returned for retry.
func (w *AnalysisWorker) Handle(ctx context.Context, msg *kafka.Message) error {
	req, env, err := decodeRequest(msg)
	if err != nil {
		return kafka.Permanent(err)
	}
	log := w.logger.With(logging.String("request_id", req.RequestID))

	lockName := "analysis:" + req.RequestID
	if w.lock != nil {
		ok, err := w.lock.TryLock(ctx, lockName, w.lockTTL)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("duplicate analysis request skipped")
			return nil
		}
	}

	if err := w.process(ctx, req, env); err != nil {
		if w.lock != nil {
			if uerr := w.lock.Unlock(context.WithoutCancel(ctx), lockName); uerr != nil {
				log.Warn("failed to release request claim", logging.Err(uerr))
			}
		}
		return err
	}
	return nil
}

func (w *AnalysisWorker) process(ctx context.Context, req *AnalysisRequest, in *kafka.EventEnvelope) error {
	report, err := w.svc.Analyze(ctx, req.Notation, notation.AnalyzeOptions{
		Name:         req.Name,
		SequenceType: req.SequenceType,
		Strict:       req.Strict,
		Archive:      req.Archive,
	})
	if err != nil {
		return err
	}

	env, err := kafka.NewEventEnvelope(kafka.EventAnalysisCompleted, w.source, AnalysisCompleted{RequestID: req.RequestID, Report: report})
	if err != nil {
		return kafka.Permanent(err)
	}
	env.TraceID = in.TraceID
	if env.TraceID == "" {
		env.TraceID = in.EventID
	}
	out, err := env.ToMessage(w.resultTopic, req.RequestID)
	if err != nil {
		return kafka.Permanent(err)
	}
	if err := w.pub.Publish(ctx, out); err != nil {
		return err
	}

	w.logger.Info("analysis request completed",
		logging.String("request_id", req.RequestID),
		logging.String("report_id", report.ID),
		logging.Bool("valid", report.Valid),
		logging.Int("failed_operations", len(report.Errors)))
	return nil
}

func decodeRequest(msg *kafka.Message) (*AnalysisRequest, *kafka.EventEnvelope, error) {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return nil, nil, err
	}
	if env.EventType != kafka.EventAnalysisRequested {
		return nil, nil, errors.Newf(errors.ErrCodeBadRequest, "unexpected event type %q", env.EventType)
	}
	var req AnalysisRequest
	if err := env.DecodePayload(&req); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(req.Notation) == "" {
		return nil, nil, errors.New(errors.ErrCodeBadRequest, "notation is required").WithDetail(env.EventID)
	}
	if req.RequestID == "" {
		req.RequestID = env.EventID
	}
	return &req, env, nil
}

// NewRequestMessage builds an analysis.requested record for topic.
func NewRequestMessage(topic, source string, req AnalysisRequest) (*kafka.ProducerMessage, error) {
	env, err := kafka.NewEventEnvelope(kafka.EventAnalysisRequested, source, req)
	if err != nil {
		return nil, err
	}
	key := req.RequestID
	if key == "" {
		key = env.EventID
	}
	return env.ToMessage(topic, key)
}
