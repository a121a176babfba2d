//go:build unit

package messaging_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roombook/internal/domain/payment"
	"roombook/internal/infra/messaging"
	"roombook/internal/pkg/config"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if len(r.fetchErrs) > 0 {
			err := r.fetchErrs[0]
			r.fetchErrs = r.fetchErrs[1:]
			r.mu.Unlock()
			return kafka.Message{}, err
		}
		if len(r.queue) > 0 {
			msg := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return msg, nil
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
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

func (r *fakeReader) Committed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) Messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

// processorFunc answers ProcessPaymentEvent with the next queued error.
type processorFunc struct {
	mu     sync.Mutex
	errs   []error
	events []payment.Event
}

func (p *processorFunc) ProcessPaymentEvent(_ context.Context, e payment.Event) (*commands.PaymentEventResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	var err error
	if len(p.errs) > 0 {
		err = p.errs[0]
		p.errs = p.errs[1:]
	}
	if err != nil {
		return nil, err
	}
	return &commands.PaymentEventResult{BookingID: uuid.New(), Status: e.Status, Confirmed: e.Status == payment.StatusPaid}, nil
}

func (p *processorFunc) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

const paidBody = `{"external_id":"booking-BKABCD1234-1771588800","provider_transaction_id":"txn-1","status":"PAID","amount":232000}`

func kafkaCfg() config.KafkaConfig {
	return config.KafkaConfig{
		PaymentTopic: "payment-events",
		PaymentDLQ:   "payment-events-dlq",
		GroupID:      "roombook-payments",
		MaxRetries:   2,
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// runUntilCommitted runs the consumer until want offsets are committed.
func runUntilCommitted(t *testing.T, c *messaging.PaymentConsumer, reader *fakeReader, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return reader.Committed() >= want }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

// =============================================================================
// Run
// =============================================================================

func TestPaymentConsumer_Run(t *testing.T) {
	transient := errs.Persistence(errors.New("connection reset"))

	testCases := []struct {
		name          string
		body          string
		results       []error
		wantCalls     int
		wantDLQ       bool
		wantAttempts  string
		wantErrHeader string
	}{
		{
			name:      "success: paid event is processed and committed",
			body:      paidBody,
			wantCalls: 1,
		},
		{
			name:      "success: duplicate is acknowledged without dead-lettering",
			body:      paidBody,
			results:   []error{commands.ErrDuplicatePaymentEvent},
			wantCalls: 1,
		},
		{
			name:      "success: transient failure is retried",
			body:      paidBody,
			results:   []error{transient},
			wantCalls: 2,
		},
		{
			name:          "error: undecodable payload goes to the dead-letter topic",
			body:          `not-json`,
			wantCalls:     0,
			wantDLQ:       true,
			wantAttempts:  "0",
			wantErrHeader: "decode payment callback",
		},
		{
			name:         "error: unknown booking is not retried",
			body:         paidBody,
			results:      []error{errs.NotFound(commands.ErrBookingNotFound)},
			wantCalls:    1,
			wantDLQ:      true,
			wantAttempts: "1",
		},
		{
			name:          "error: retries exhausted",
			body:          paidBody,
			results:       []error{transient, transient, transient},
			wantCalls:     3,
			wantDLQ:       true,
			wantAttempts:  "3",
			wantErrHeader: "connection reset",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := kafka.Message{Topic: "payment-events", Key: []byte("BKABCD1234"), Value: []byte(tc.body), Offset: 7}
			reader := &fakeReader{queue: []kafka.Message{msg}}
			dlq := &fakeWriter{}
			processor := &processorFunc{errs: tc.results}
			c := messaging.NewPaymentConsumerWith(reader, dlq, processor, kafkaCfg())

			runUntilCommitted(t, c, reader, 1)

			assert.Equal(t, tc.wantCalls, processor.Calls())
			dead := dlq.Messages()
			if !tc.wantDLQ {
				assert.Empty(t, dead)
				return
			}
			require.Len(t, dead, 1)
			assert.Equal(t, msg.Value, dead[0].Value)
			assert.Equal(t, msg.Key, dead[0].Key)
			assert.Equal(t, "payment-events", header(dead[0], messaging.HeaderOriginalTopic))
			assert.Equal(t, "roombook-payments", header(dead[0], messaging.HeaderDLQGroup))
			assert.Equal(t, tc.wantAttempts, header(dead[0], messaging.HeaderDLQAttempts))
			assert.Contains(t, header(dead[0], messaging.HeaderDLQError), tc.wantErrHeader)
		})
	}
}

func TestPaymentConsumer_Run_Normalises(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Value: []byte(
		`{"id":"inv_3","external_id":" booking-BKABCD1234-1771588800 ","payment_id":"pay_3","status":"settled","amount":1000,"paid_amount":900,"payment_method":"QRIS"}`,
	)}}}
	processor := &processorFunc{}
	c := messaging.NewPaymentConsumerWith(reader, nil, processor, kafkaCfg())

	runUntilCommitted(t, c, reader, 1)

	require.Equal(t, 1, processor.Calls())
	got := processor.events[0]
	assert.Equal(t, "booking-BKABCD1234-1771588800", got.ExternalID)
	assert.Equal(t, "pay_3", got.ProviderTransactionID)
	assert.Equal(t, payment.StatusPaid, got.Status)
	assert.Equal(t, int64(900), got.AmountCents)
	assert.Equal(t, payment.MethodQRCode, got.Method.Kind)
}

func TestPaymentConsumer_Run_FetchErrors(t *testing.T) {
	reader := &fakeReader{
		fetchErrs: []error{errors.New("broker not available")},
		queue:     []kafka.Message{{Value: []byte(paidBody)}},
	}
	processor := &processorFunc{}
	c := messaging.NewPaymentConsumerWith(reader, &fakeWriter{}, processor, kafkaCfg())

	runUntilCommitted(t, c, reader, 1)

	assert.Equal(t, 1, processor.Calls())
}

func TestPaymentConsumer_Run_StopsMidRetry(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Value: []byte(paidBody)}}}
	processor := &processorFunc{errs: []error{errs.Persistence(errors.New("timeout"))}}
	cfg := kafkaCfg()
	cfg.FetchBackoff = time.Hour
	c := messaging.NewPaymentConsumerWith(reader, &fakeWriter{}, processor, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	require.Eventually(t, func() bool { return processor.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Zero(t, reader.Committed(), "an unsettled message must be redelivered")
}

func TestPaymentConsumer_Close(t *testing.T) {
	reader := &fakeReader{}
	c := messaging.NewPaymentConsumerWith(reader, &fakeWriter{}, &processorFunc{}, kafkaCfg())

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}
