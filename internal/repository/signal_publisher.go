package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
	pkgkafka "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/kafka"
)

// batchPublisher is satisfied by *pkgkafka.Producer.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaSignalPublisher publishes signal records keyed by symbol so each
// symbol's signals stay ordered within one partition.
type KafkaSignalPublisher struct {
	producer batchPublisher
	topic    string
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, rec models.SignalRecord) error {
	msg := pkgkafka.Message{
		Key:   []byte(rec.Symbol),
		Value: rec,
		Headers: map[string]string{
			"cycle_id":  rec.CycleID,
			"signal_id": strconv.FormatInt(rec.ID, 10),
			"side":      rec.Side,
		},
	}
	if err := p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{msg}); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopSignalPublisher is used when Kafka is disabled.
type NoopSignalPublisher struct{}

var _ domrepo.SignalPublisher = NoopSignalPublisher{}

func (NoopSignalPublisher) PublishSignal(context.Context, models.SignalRecord) error { return nil }
func (NoopSignalPublisher) Close() error                                             { return nil }
