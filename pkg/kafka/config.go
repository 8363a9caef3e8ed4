package kafka

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"
)

// ProducerConfig describes the signal writer. Zero fields take the tag
// defaults, so RequiredAcks 0 means "all" rather than "none". The "hash"
// balancer keeps every message of a symbol on one partition.
type ProducerConfig struct {
	Brokers      []string      `validate:"min=1,dive,required"`
	RequiredAcks int           `default:"-1" validate:"oneof=-1 1"`
	Compression  string        `default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	MaxAttempts  int           `default:"3" validate:"gte=1"`
	WriteTimeout time.Duration `default:"10s"`
	ReadTimeout  time.Duration `default:"10s"`
	BatchSize    int           `default:"100" validate:"gte=1"`
	BatchBytes   int           `default:"1048576" validate:"gte=1024"`
	Linger       time.Duration `default:"50ms"`
	Balancer     string        `default:"hash" validate:"oneof=hash least_bytes"`
	Async        bool
}

var configValidate = validator.New()

func (c *ProducerConfig) prepare() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("producer defaults: %w", err)
	}
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("producer config: %w", err)
	}
	return nil
}

func (c *ProducerConfig) writer() *kafka.Writer {
	bal := kafka.Balancer(&kafka.Hash{})
	if c.Balancer == "least_bytes" {
		bal = &kafka.LeastBytes{}
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Balancer:               bal,
		RequiredAcks:           kafka.RequiredAcks(c.RequiredAcks),
		Compression:            compressionCodec(c.Compression),
		MaxAttempts:            c.MaxAttempts,
		WriteTimeout:           c.WriteTimeout,
		ReadTimeout:            c.ReadTimeout,
		BatchSize:              c.BatchSize,
		BatchBytes:             int64(c.BatchBytes),
		BatchTimeout:           c.Linger,
		Async:                  c.Async,
		AllowAutoTopicCreation: false,
	}
}

func compressionCodec(s string) kafka.Compression {
	switch s {
	case "none":
		return 0
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}
