package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/core/decoder"
	"firestige.xyz/batadv/internal/metrics"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
	defaultCompression  = "snappy"
	defaultMaxAttempts  = 3
	defaultQueueSize    = 4096
	flushTimeout        = 10 * time.Second
)

// KafkaConfig configures the Kafka tap sink.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`       // required
	Topic        string        `mapstructure:"topic"`         // required
	BatchSize    int           `mapstructure:"batch_size"`    // optional, default 100
	BatchTimeout time.Duration `mapstructure:"batch_timeout"` // optional, default 100ms
	Compression  string        `mapstructure:"compression"`   // optional: none|gzip|snappy|lz4, default snappy
	MaxAttempts  int           `mapstructure:"max_attempts"`  // optional, default 3
	Encoding     string        `mapstructure:"encoding"`      // optional: json|proto, default json
	QueueSize    int           `mapstructure:"queue_size"`    // optional, default 4096
}

// ParseKafkaConfig decodes a free-form option map and applies defaults.
func ParseKafkaConfig(raw map[string]any) (KafkaConfig, error) {
	cfg := KafkaConfig{
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Compression:  defaultCompression,
		MaxAttempts:  defaultMaxAttempts,
		Encoding:     EncodingJSON,
		QueueSize:    defaultQueueSize,
	}
	if raw == nil {
		return cfg, fmt.Errorf("%w: kafka sink requires configuration", core.ErrConfigInvalid)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(raw); err != nil {
		return cfg, fmt.Errorf("%w: kafka sink: %v", core.ErrConfigInvalid, err)
	}

	if len(cfg.Brokers) == 0 {
		return cfg, fmt.Errorf("%w: kafka sink: brokers is required", core.ErrConfigInvalid)
	}
	if cfg.Topic == "" {
		return cfg, fmt.Errorf("%w: kafka sink: topic is required", core.ErrConfigInvalid)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if _, err := compressionCodec(cfg.Compression); err != nil {
		return cfg, err
	}
	if _, err := encoderFor(cfg.Encoding); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func compressionCodec(name string) (kafka.CompressionCodec, error) {
	switch name {
	case "none", "":
		return nil, nil
	case "gzip":
		return compress.Gzip.Codec(), nil
	case "snappy":
		return compress.Snappy.Codec(), nil
	case "lz4":
		return compress.Lz4.Codec(), nil
	default:
		return nil, fmt.Errorf("%w: invalid compression type: %s", core.ErrConfigInvalid, name)
	}
}

// messageWriter is the part of kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes tapped headers as Kafka messages keyed by the source
// address. Tap never blocks: records are queued and written in batches by
// a background goroutine, and records arriving on a full queue are dropped.
type Kafka struct {
	config KafkaConfig
	writer messageWriter
	encode recordEncoder
	now    func() time.Time
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}

	// Statistics
	reportedCount atomic.Uint64
	droppedCount  atomic.Uint64
	errorCount    atomic.Uint64
}

var _ decoder.Tap = (*Kafka)(nil)

// NewKafka creates the sink from a parsed configuration.
func NewKafka(cfg KafkaConfig, logger *slog.Logger) (*Kafka, error) {
	codec, err := compressionCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:          cfg.Brokers,
		Topic:            cfg.Topic,
		Balancer:         &kafka.Hash{},
		BatchSize:        cfg.BatchSize,
		BatchTimeout:     cfg.BatchTimeout,
		MaxAttempts:      cfg.MaxAttempts,
		CompressionCodec: codec,
		Async:            false,
	})
	return newKafka(cfg, w, logger)
}

func newKafka(cfg KafkaConfig, w messageWriter, logger *slog.Logger) (*Kafka, error) {
	encode, err := encoderFor(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	k := &Kafka{
		config: cfg,
		writer: w,
		encode: encode,
		now:    time.Now,
		logger: logger.With("sink", "kafka"),
		queue:  make(chan kafka.Message, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go k.loop()

	k.logger.Info("kafka sink started",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"batch_size", cfg.BatchSize,
		"batch_timeout", cfg.BatchTimeout,
		"compression", cfg.Compression,
		"encoding", cfg.Encoding,
	)
	return k, nil
}

// Tap queues one header.
func (k *Kafka) Tap(hdr decoder.Header, addr core.Addressing) {
	rec := NewTapRecord(hdr, addr, k.now())
	value, err := k.encode(rec)
	if err != nil {
		k.errorCount.Add(1)
		metrics.SinkErrorsTotal.WithLabelValues("kafka", "encode").Inc()
		k.logger.Debug("failed to encode tap record", "protocol", rec.Protocol, "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(addr.Src.String()),
		Value: value,
		Time:  rec.Timestamp,
		Headers: []kafka.Header{
			{Key: "protocol", Value: []byte(rec.Protocol)},
			{Key: "version", Value: []byte(fmt.Sprintf("%d", rec.Version))},
		},
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		k.droppedCount.Add(1)
		return
	}
	select {
	case k.queue <- msg:
	default:
		k.droppedCount.Add(1)
		metrics.SinkErrorsTotal.WithLabelValues("kafka", "queue_full").Inc()
	}
}

func (k *Kafka) loop() {
	defer close(k.done)

	ticker := time.NewTicker(k.config.BatchTimeout)
	defer ticker.Stop()

	batch := make([]kafka.Message, 0, k.config.BatchSize)
	for {
		select {
		case msg, ok := <-k.queue:
			if !ok {
				k.flush(batch)
				return
			}
			batch = append(batch, msg)
			if len(batch) >= k.config.BatchSize {
				k.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				k.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (k *Kafka) flush(batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}
	metrics.SinkBatchSize.WithLabelValues("kafka").Observe(float64(len(batch)))

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, batch...); err != nil {
		k.errorCount.Add(uint64(len(batch)))
		metrics.SinkErrorsTotal.WithLabelValues("kafka", "write").Inc()
		k.logger.Error("kafka write failed", "messages", len(batch), "error", err)
		return
	}
	k.reportedCount.Add(uint64(len(batch)))
}

// Close flushes queued records and closes the writer. It is idempotent.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	close(k.queue)
	k.mu.Unlock()

	<-k.done
	err := k.writer.Close()
	if err != nil {
		k.logger.Error("error closing kafka writer", "error", err)
	}
	k.logger.Info("kafka sink stopped",
		"total_reported", k.reportedCount.Load(),
		"total_dropped", k.droppedCount.Load(),
		"total_errors", k.errorCount.Load(),
	)
	return err
}

// Reported returns the number of records written to Kafka.
func (k *Kafka) Reported() uint64 { return k.reportedCount.Load() }

// Dropped returns the number of records lost to a full queue or a closed sink.
func (k *Kafka) Dropped() uint64 { return k.droppedCount.Load() }

// Errors returns the number of records that failed to encode or write.
func (k *Kafka) Errors() uint64 { return k.errorCount.Load() }
