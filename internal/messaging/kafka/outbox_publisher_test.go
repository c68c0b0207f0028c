package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOutboxPublisherPublish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndSucceed()

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "order",
		AggregateID:   "order-123",
		EventType:     string(EventTypeOrderCreated),
		Payload:       []byte(`{"order_id":"order-123"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisherPublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: "order",
		AggregateID:   "order-234",
		EventType:     string(EventTypeOrderCanceled),
		Payload:       []byte(`{"order_id":"order-234"}`),
	})
	if err == nil {
		t.Fatal("expected error when producer fails")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisherNotInitialized(t *testing.T) {
	t.Parallel()

	publisher := &OutboxTopicPublisher{}
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for publisher without producer")
	}
}

func TestOutboxPublisherDefaultsTopic(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(&Producer{}, "")
	topicPublisher, ok := publisher.(*OutboxTopicPublisher)
	if !ok {
		t.Fatalf("unexpected publisher type %T", publisher)
	}
	if topicPublisher.topic != TopicOrderEvents {
		t.Errorf("expected default topic %q, got %q", TopicOrderEvents, topicPublisher.topic)
	}
}
