package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/opiniq/sentilens/internal/models"
)

const RecordsTopic = "sentiment-records"

// Publisher emits persisted records onto the events topic for external
// consumers. The pipeline never depends on it: publishing is
// best-effort and happens after persistence has already succeeded.
type Publisher struct {
	producer *kafka.Producer
}

// NewPublisher connects a producer to the broker named by KAFKA_BROKER.
// Returns nil when no broker is configured; event publishing is
// disabled then.
func NewPublisher() *Publisher {
	broker := os.Getenv("KAFKA_BROKER")
	if broker == "" {
		slog.Warn("[EventPublisher] KAFKA_BROKER not set, event publishing disabled")
		return nil
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":   broker,
		"security.protocol":   "PLAINTEXT",
		"api.version.request": "true",
	})
	if err != nil {
		slog.Error("[EventPublisher] Failed to create producer, event publishing disabled",
			slog.String("broker", broker),
			slog.String("error", err.Error()))
		return nil
	}

	slog.Info("[EventPublisher] Connected to Kafka", slog.String("broker", broker))
	return &Publisher{producer: producer}
}

// PublishRecords emits one message per record and waits for the
// deliveries. Delivery failures are logged per record; the first one is
// returned so callers can surface that the batch was incomplete.
func (p *Publisher) PublishRecords(records []models.SentimentRecord) error {
	deliveryChan := make(chan kafka.Event, len(records))
	produced := 0

	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			slog.Error("[EventPublisher] Failed to marshal record",
				slog.String("record_id", record.ID),
				slog.String("error", err.Error()))
			continue
		}

		topic := RecordsTopic
		err = p.producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
			Key:            []byte(record.Query),
			Value:          payload,
		}, deliveryChan)
		if err != nil {
			slog.Error("[EventPublisher] Failed to enqueue record",
				slog.String("record_id", record.ID),
				slog.String("error", err.Error()))
			continue
		}
		produced++
	}

	var firstErr error
	for i := 0; i < produced; i++ {
		event := <-deliveryChan
		message, ok := event.(*kafka.Message)
		if !ok {
			continue
		}
		if message.TopicPartition.Error != nil {
			slog.Error("[EventPublisher] Delivery failed",
				slog.String("error", message.TopicPartition.Error.Error()))
			if firstErr == nil {
				firstErr = message.TopicPartition.Error
			}
		}
	}
	close(deliveryChan)

	if firstErr != nil {
		return fmt.Errorf("[EventPublisher] batch delivery incomplete: %w", firstErr)
	}
	slog.Info("[EventPublisher] Published records", slog.Int("count", produced))
	return nil
}

func (p *Publisher) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
	slog.Info("[EventPublisher] Producer shut down")
}
