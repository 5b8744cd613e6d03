package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/config"
	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxAttempts    = 5
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces canonical records to a Kafka topic.
type Publisher struct {
	writer    messageWriter
	batchSize int
	backoff   time.Duration
	logger    *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured record topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg.BatchSize, logger)
}

func newPublisher(w messageWriter, batchSize int, logger *slog.Logger) *Publisher {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Publisher{writer: w, batchSize: batchSize, backoff: initialBackoff, logger: logger}
}

// Publish writes recs in batches, keyed by operator and substation so
// updates for one substation land on the same partition. Each batch is
// retried with exponential backoff.
func (p *Publisher) Publish(ctx context.Context, runID uuid.UUID, recs []domain.CanonicalRecord) error {
	for start := 0; start < len(recs); start += p.batchSize {
		end := min(start+p.batchSize, len(recs))

		msgs := make([]kafkago.Message, 0, end-start)
		for i := start; i < end; i++ {
			msg, err := serializeToMessage(runID, recs[i])
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}

		if err := p.writeWithRetry(ctx, msgs); err != nil {
			return fmt.Errorf("publish records %d-%d: %w", start, end-1, err)
		}
	}
	p.logger.Info("records published", "run_id", runID, "records", len(recs))
	return nil
}

func (p *Publisher) writeWithRetry(ctx context.Context, msgs []kafkago.Message) error {
	backoff := p.backoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = p.writer.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("kafka write failed", "error", err, "attempt", attempt, "batch_size", len(msgs))
		if attempt == maxAttempts || !sharedretry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
	return err
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a CanonicalRecord into a Kafka message.
func serializeToMessage(runID uuid.UUID, r domain.CanonicalRecord) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %s: %w", r.Key(), err)
	}
	return kafkago.Message{
		Key:   []byte(r.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID.String())},
			{Key: "color_bucket", Value: []byte(r.ColorBucket)},
		},
	}, nil
}
