package repository

import (
	"context"
	"fmt"

	"OptiFeed/internal/domain/models"
	drepo "OptiFeed/internal/domain/repository"
	"OptiFeed/pkg/kafka"
)

// KafkaPublisher streams each snapshot to Kafka: the whole snapshot on the
// snapshot topic, and one message per screened option on the options topic,
// keyed by contract so per-contract ordering survives partitioning.
type KafkaPublisher struct {
	producer      *kafka.Producer
	snapshotTopic string
	optionsTopic  string
}

// NewKafkaPublisher wires a snapshot sink onto an existing producer.
func NewKafkaPublisher(producer *kafka.Producer, snapshotTopic, optionsTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer:      producer,
		snapshotTopic: snapshotTopic,
		optionsTopic:  optionsTopic,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, snap *models.MarketSnapshot) error {
	key := []byte(snap.Timestamp.UTC().Format("20060102T150405.000"))
	if err := p.producer.Publish(ctx, p.snapshotTopic, key, snap); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	if p.optionsTopic == "" || len(snap.Options) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(snap.Options))
	for _, opt := range snap.Options {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(opt.Key()),
			Value: opt,
		})
	}
	if err := p.producer.PublishBatch(ctx, p.optionsTopic, msgs); err != nil {
		return fmt.Errorf("publish screened options: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

var _ drepo.SnapshotSink = (*KafkaPublisher)(nil)
