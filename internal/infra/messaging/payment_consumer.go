package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"roombook/internal/domain/payment"
	paymentinfra "roombook/internal/infra/payment"
	"roombook/internal/pkg/config"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/commands"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderOriginalTopic = "original-topic"
	HeaderDLQError      = "dlq-error"
	HeaderDLQTimestamp  = "dlq-timestamp"
	HeaderDLQGroup      = "dlq-consumer-group"
	HeaderDLQAttempts   = "dlq-attempts"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type PaymentEventProcessor interface {
	ProcessPaymentEvent(ctx context.Context, e payment.Event) (*commands.PaymentEventResult, error)
}

// PaymentConsumer feeds the payment-events topic into ProcessPaymentEvent.
// Offsets are committed once a message is handled, dead-lettered or found to
// be a duplicate, so redelivery after a crash is absorbed by the
// idempotent processor.
type PaymentConsumer struct {
	reader     MessageReader
	dlq        MessageWriter
	processor  PaymentEventProcessor
	topic      string
	groupID    string
	maxRetries int
	backoff    time.Duration
}

func NewPaymentConsumer(cfg config.KafkaConfig, processor PaymentEventProcessor) *PaymentConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.PaymentTopic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       cfg.ConsumerBytes,
		MaxWait:        cfg.MaxWait,
		CommitInterval: cfg.CommitEvery,
		Logger:         kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger:    kafka.LoggerFunc(kafkaErrorLogger),
	})

	var dlq MessageWriter
	if cfg.PaymentDLQ != "" {
		dlq = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.PaymentDLQ,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			ErrorLogger:  kafka.LoggerFunc(kafkaErrorLogger),
		}
	}
	return NewPaymentConsumerWith(reader, dlq, processor, cfg)
}

// NewPaymentConsumerWith takes an already built reader and dead-letter
// writer. dlq may be nil, in which case poison messages are logged and
// skipped.
func NewPaymentConsumerWith(reader MessageReader, dlq MessageWriter, processor PaymentEventProcessor, cfg config.KafkaConfig) *PaymentConsumer {
	return &PaymentConsumer{
		reader:     reader,
		dlq:        dlq,
		processor:  processor,
		topic:      cfg.PaymentTopic,
		groupID:    cfg.GroupID,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.FetchBackoff,
	}
}

// Run consumes until ctx is cancelled.
func (c *PaymentConsumer) Run(ctx context.Context) error {
	slog.Info("payment consumer started", "topic", c.topic, "group_id", c.groupID)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("payment consumer stopped", "topic", c.topic)
				return ctx.Err()
			}
			slog.Warn("fetch payment message failed", "topic", c.topic, "error", err)
			if !sleep(ctx, c.backoff) {
				return ctx.Err()
			}
			continue
		}

		if !c.handle(ctx, msg) {
			return ctx.Err()
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			slog.Error("commit payment message failed",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *PaymentConsumer) Close() error {
	err := c.reader.Close()
	if c.dlq != nil {
		if dlqErr := c.dlq.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

// handle reports false only when ctx ended before the message was settled;
// the offset is then left uncommitted for redelivery.
func (c *PaymentConsumer) handle(ctx context.Context, msg kafka.Message) bool {
	log := slog.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))

	event, err := decodeEvent(msg.Value)
	if err != nil {
		c.deadLetter(ctx, msg, err, 0)
		return true
	}

	for attempt := 1; ; attempt++ {
		result, err := c.processor.ProcessPaymentEvent(ctx, event)
		switch {
		case err == nil:
			log.Debug("payment message processed",
				"booking_id", result.BookingID, "status", string(result.Status), "confirmed", result.Confirmed)
			return true
		case errs.Is(err, commands.ErrDuplicatePaymentEvent):
			log.Debug("duplicate payment message", "external_id", event.ExternalID)
			return true
		case isPermanent(err):
			c.deadLetter(ctx, msg, err, attempt)
			return true
		case attempt > c.maxRetries:
			c.deadLetter(ctx, msg, err, attempt)
			return true
		}
		log.Warn("payment message failed, retrying", "attempt", attempt, "max_retries", c.maxRetries, "error", err)
		if !sleep(ctx, c.backoff) {
			return false
		}
	}
}

func (c *PaymentConsumer) deadLetter(ctx context.Context, msg kafka.Message, cause error, attempts int) {
	if c.dlq == nil {
		slog.Error("payment message dropped", "offset", msg.Offset, "error", cause)
		return
	}
	out := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now(),
		Headers: append(append([]kafka.Header(nil), msg.Headers...),
			kafka.Header{Key: HeaderOriginalTopic, Value: []byte(c.topic)},
			kafka.Header{Key: HeaderDLQError, Value: []byte(cause.Error())},
			kafka.Header{Key: HeaderDLQTimestamp, Value: []byte(time.Now().UTC().Format(time.RFC3339))},
			kafka.Header{Key: HeaderDLQGroup, Value: []byte(c.groupID)},
			kafka.Header{Key: HeaderDLQAttempts, Value: []byte(strconv.Itoa(attempts))},
		),
	}
	if err := c.dlq.WriteMessages(ctx, out); err != nil {
		slog.Error("dead-letter write failed", "offset", msg.Offset, "error", err, "cause", cause)
		return
	}
	slog.Warn("payment message dead-lettered", "offset", msg.Offset, "attempts", attempts, "error", cause)
}

func decodeEvent(value []byte) (payment.Event, error) {
	cb, err := paymentinfra.DecodeCallback(value)
	if err != nil {
		return payment.Event{}, err
	}
	return cb.Event()
}

// isPermanent reports errors that will not change on redelivery.
func isPermanent(err error) bool {
	return errs.Is(err, errs.ErrValidation) ||
		errs.Is(err, errs.ErrNotFound) ||
		errs.Is(err, errs.ErrForbidden) ||
		errs.Is(err, errs.ErrInvalidStateTransition)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func kafkaErrorLogger(msg string, args ...any) {
	slog.Error("kafka client error", "detail", fmt.Sprintf(msg, args...))
}
