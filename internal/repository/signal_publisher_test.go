package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	pkgkafka "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/kafka"
)

type recordingProducer struct {
	topic string
	msgs  []pkgkafka.Message
	err   error
}

func (r *recordingProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	r.topic = topic
	r.msgs = append(r.msgs, msgs...)
	return r.err
}

func (r *recordingProducer) Close() error { return nil }

func TestKafkaSignalPublisher(t *testing.T) {
	rp := &recordingProducer{}
	p := &KafkaSignalPublisher{producer: rp, topic: "option-chain.signals"}

	rec := models.SignalRecord{ID: 42, CycleID: "c-1", Symbol: "NSE:NIFTY50-INDEX", Side: "CE"}
	require.NoError(t, p.PublishSignal(context.Background(), rec))

	assert.Equal(t, "option-chain.signals", rp.topic)
	require.Len(t, rp.msgs, 1)
	assert.Equal(t, "NSE:NIFTY50-INDEX", string(rp.msgs[0].Key))
	assert.Equal(t, rec, rp.msgs[0].Value)
	assert.Equal(t, "42", rp.msgs[0].Headers["signal_id"])

	rp.err = errors.New("broker down")
	require.Error(t, p.PublishSignal(context.Background(), rec))
}

func TestNoopSignalPublisher(t *testing.T) {
	var p NoopSignalPublisher
	require.NoError(t, p.PublishSignal(context.Background(), models.SignalRecord{}))
	require.NoError(t, p.Close())
}
