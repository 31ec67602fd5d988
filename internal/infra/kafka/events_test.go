package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()

	asyncProducer := newFakeAsyncProducer()
	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "compass",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "compass-auth",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func TestPublishLoginSucceeded(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	occurredAt := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	ip := "198.51.100.10"
	event := domain.LoginSucceededEvent{
		EventID:       "event-123",
		AccountID:     "acc-456",
		Method:        "password+totp",
		DeviceTrusted: true,
		IP:            &ip,
		OccurredAt:    occurredAt,
		Metadata:      map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishLoginSucceeded(context.Background(), event); err != nil {
		t.Fatalf("PublishLoginSucceeded returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "compass.login.succeeded" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}
		if got := envelope["event_type"]; got != "compass.login.succeeded" {
			t.Fatalf("unexpected event_type: %v", got)
		}
		if got := envelope["account_id"]; got != event.AccountID {
			t.Fatalf("unexpected account_id: %v", got)
		}
		if got := envelope["version"]; got != "1.0" {
			t.Fatalf("unexpected version: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != occurredAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}
		if got := payload["method"]; got != event.Method {
			t.Fatalf("unexpected method: %v", got)
		}
		if got := payload["device_trusted"]; got != true {
			t.Fatalf("unexpected device_trusted: %v", got)
		}
		if got := payload["ip_address"]; got != ip {
			t.Fatalf("unexpected ip_address: %v", got)
		}

		metadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("metadata not a map: %T", envelope["metadata"])
		}
		if got := metadata["service"]; got != "compass-auth" {
			t.Fatalf("unexpected metadata.service: %v", got)
		}
	default:
		t.Fatal("expected a message on the producer input channel")
	}
}

func TestPublishAccountRegisteredOmitsAccountID(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	stagedAt := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	event := domain.AccountRegisteredEvent{
		EventID:      "event-reg-1",
		Email:        "ada@example.com",
		Organization: "Analytical Engines Ltd",
		StagedAt:     stagedAt,
	}

	if err := publisher.PublishAccountRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishAccountRegistered returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "compass.account.registered" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		// No account exists yet at registration time.
		if _, present := envelope["account_id"]; present {
			t.Fatalf("expected account_id to be omitted, got %v", envelope["account_id"])
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}
		if got := payload["email"]; got != event.Email {
			t.Fatalf("unexpected email: %v", got)
		}
	default:
		t.Fatal("expected a message on the producer input channel")
	}
}

func TestPublishBlockedProducerHonorsContext(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	// Fill the input channel so the next publish cannot proceed.
	asyncProducer.input <- &sarama.ProducerMessage{Topic: "compass.filler"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishTwoFADisabled(ctx, domain.TwoFADisabledEvent{
		EventID:    "event-1",
		AccountID:  "acc-1",
		DisabledAt: time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("expected context error when the producer is saturated")
	}
}

func TestTopicName(t *testing.T) {
	producer := &Producer{cfg: config.KafkaSettings{TopicPrefix: "compass"}}

	if got := producer.TopicName("compass.login.succeeded"); got != "compass.login.succeeded" {
		t.Fatalf("expected prefixed event type to pass through, got %q", got)
	}
	if got := producer.TopicName("login.succeeded"); got != "compass.login.succeeded" {
		t.Fatalf("expected prefix to be applied, got %q", got)
	}

	bare := &Producer{cfg: config.KafkaSettings{}}
	if got := bare.TopicName("login.succeeded"); got != "login.succeeded" {
		t.Fatalf("expected event type unchanged without prefix, got %q", got)
	}
}
