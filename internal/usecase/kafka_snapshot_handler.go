package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
	pkgkafka "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/kafka"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/util"
)

var ErrInvalidSnapshot = errors.New("usecase: invalid snapshot message")

// SnapshotProcessor is the part of CycleRunner the consumer drives.
type SnapshotProcessor interface {
	Process(ctx context.Context, snap models.Snapshot) (models.Decision, error)
}

// KafkaSnapshotHandler evaluates snapshots captured elsewhere and published
// as {symbol, spot, snapshot_time, rows}.
type KafkaSnapshotHandler struct {
	topic   string
	runner  SnapshotProcessor
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewKafkaSnapshotHandler(topic string, runner SnapshotProcessor, metrics domrepo.Metrics, l *applogger.Logger) *KafkaSnapshotHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaSnapshotHandler{topic: topic, runner: runner, metrics: metrics, l: l}
}

func (h *KafkaSnapshotHandler) Topic() string { return h.topic }

// snapshotMessage accepts snapshot_time as RFC3339, "2006-01-02 15:04:05"
// or epoch seconds/milliseconds.
type snapshotMessage struct {
	models.Snapshot
	SnapshotTime json.RawMessage `json:"snapshot_time"`
}

func decodeSnapshot(value []byte) (models.Snapshot, error) {
	var msg snapshotMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return models.Snapshot{}, err
	}
	snap := msg.Snapshot
	raw := strings.Trim(string(msg.SnapshotTime), `"`)
	if raw == "" || raw == "null" {
		return snap, nil
	}
	t, ok := util.ParseTime(raw)
	if !ok {
		return models.Snapshot{}, fmt.Errorf("snapshot_time %q", raw)
	}
	snap.SnapshotTime = t
	return snap, nil
}

// Handle returns an error for anything worth retrying or dead-lettering.
// Snapshots without rows are dropped.
func (h *KafkaSnapshotHandler) Handle(ctx context.Context, key, value []byte) error {
	snap, err := decodeSnapshot(value)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if snap.Symbol == "" || !(snap.Spot > 0) {
		h.metrics.RecordError("consumer_validate")
		return fmt.Errorf("%w: symbol and positive spot are required (key %q)", ErrInvalidSnapshot, key)
	}
	if !snap.SnapshotTime.IsZero() {
		h.metrics.RecordStageLatency("ingest_lag", time.Since(snap.SnapshotTime).Seconds())
	}

	d, err := h.runner.Process(ctx, snap)
	if errors.Is(err, ErrNoChain) {
		h.l.Warn("dropping snapshot without rows", applogger.String("symbol", snap.Symbol))
		return nil
	}
	if err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	h.l.Debug("snapshot evaluated",
		applogger.String("symbol", snap.Symbol),
		applogger.String("cycle_id", d.CycleID),
		applogger.String("side", d.Execution.Side),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotHandler)(nil)
