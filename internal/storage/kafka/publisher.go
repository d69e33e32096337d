package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"loanScope/internal/model"
)

// DefaultTopic receives one message per persisted contract event.
const DefaultTopic = "neurolend-events"

// PublisherConfig configures the Kafka event publisher.
type PublisherConfig struct {
	Brokers      []string
	Topic        string
	ClientID     string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Publisher sends each event to a Kafka topic keyed by event identity, so
// repeated deliveries of one event land on the same partition and can be
// compacted downstream.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPublisher dials the brokers with a synchronous producer.
func NewPublisher(cfg PublisherConfig, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newPublisher(producer, cfg.Topic, logger), nil
}

// producerConfig honours MaxRetries as given, so zero disables retries.
func producerConfig(cfg PublisherConfig) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.ClientID = cfg.ClientID
	if config.ClientID == "" {
		config.ClientID = "loanscope-indexer"
	}
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	config.Producer.Retry.Max = cfg.MaxRetries
	if config.Producer.Retry.Max < 0 {
		config.Producer.Retry.Max = 0
	}

	retryBackoff := cfg.RetryBackoff
	if retryBackoff == 0 {
		retryBackoff = 100 * time.Millisecond
	}
	config.Producer.Retry.Backoff = retryBackoff
	return config
}

func newPublisher(producer sarama.SyncProducer, topic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

func (p *Publisher) Name() string { return "kafka" }

// Persist publishes the event as JSON.
func (p *Publisher) Persist(ctx context.Context, ev model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("publisher is closed")
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := ev.Key()
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_name"), Value: []byte(ev.Name)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send kafka message: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("topic", p.topic),
		zap.String("key", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close closes the producer. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.producer.Close()
}
