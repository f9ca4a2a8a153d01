// Package kafka consumes batch requests and publishes result events.
package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/fern/config"
	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// MessageHandler processes one batch request. A returned error leaves the
// message uncommitted so it is redelivered.
type MessageHandler func(ctx context.Context, msg *IncomingMessage) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message outcomes recorded by MessagesConsumedTotal
const (
	outcomeCommitted = "committed"
	outcomeMalformed = "malformed"
	outcomeRetry     = "retry"
)

// fetchBackoff is the pause after a failed fetch
const fetchBackoff = time.Second

// Consumer reads batch requests from the input topic, one at a time, and
// commits each message once its batch is handled.
type Consumer struct {
	reader  messageReader
	topic   string
	logger  ectologger.Logger
	handler MessageHandler

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running atomic.Bool
	lastErr atomic.Pointer[string]
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// NewConsumer creates a consumer of the configured input topic
func NewConsumer(cfg config.Config, logger ectologger.Logger, handler MessageHandler) *Consumer {
	return NewConsumerWithConfig(ConsumerConfig{
		Brokers:       cfg.KafkaBrokers,
		Topic:         cfg.KafkaInputTopic,
		ConsumerGroup: cfg.KafkaConsumerGroup,
	}, logger, handler)
}

// NewConsumerWithConfig creates a consumer with explicit settings. Batches
// can be large, so fetches allow up to 10MB.
func NewConsumerWithConfig(cfg ConsumerConfig, logger ectologger.Logger, handler MessageHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // commits are synchronous
	})
	return newConsumer(reader, cfg.Topic, logger, handler)
}

func newConsumer(reader messageReader, topic string, logger ectologger.Logger, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  reader,
		topic:   topic,
		logger:  logger,
		handler: handler,
	}
}

// Start launches the consume loop and returns immediately
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running.Store(true)

	c.wg.Add(1)
	go c.run(ctx)

	c.logger.WithContext(ctx).WithField("topic", c.topic).Info("Kafka consumer started")
	return nil
}

// Stop ends the loop, waits for the in-flight batch and closes the reader
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}

// Health reports whether the loop is running and the last fetch or commit
// error, if the most recent attempt failed.
func (c *Consumer) Health() (bool, string) {
	msg := ""
	if p := c.lastErr.Load(); p != nil {
		msg = *p
	}
	return c.running.Load(), msg
}

func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()
	defer c.running.Store(false)

	for ctx.Err() == nil {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				break
			}
			c.recordErr(err)
			c.logger.WithContext(ctx).WithError(err).Error("Failed to fetch message")
			select {
			case <-ctx.Done():
			case <-time.After(fetchBackoff):
			}
			continue
		}
		c.lastErr.Store(nil)
		c.handle(ctx, msg)
	}
	c.logger.WithField("topic", c.topic).Info("Kafka consumer stopped")
}

// handle runs one message. Unparseable messages can never succeed and are
// committed; a handler error leaves the message for redelivery.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	ctx = tracing.ExtractHeaders(ctx, headers)
	ctx, span := tracing.StartSpan(ctx, "kafka.Consumer.handle")
	defer span.End()

	incoming := &IncomingMessage{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Topic:     msg.Topic,
	}

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	if err := incoming.ParseBatchRequest(); err != nil {
		log.WithError(err).Error("Dropping malformed batch request")
		c.commit(ctx, log, msg, outcomeMalformed)
		return
	}

	ctx = fernctx.SetBatchID(ctx, incoming.Batch.BatchID)
	log = log.WithField("batch_id", incoming.Batch.BatchID)

	if err := c.handler(ctx, incoming); err != nil {
		metrics.MessagesConsumedTotal.WithLabelValues(msg.Topic, outcomeRetry).Inc()
		log.WithError(err).Error("Batch failed, leaving message for redelivery")
		return
	}
	c.commit(ctx, log, msg, outcomeCommitted)
}

func (c *Consumer) commit(ctx context.Context, log ectologger.Logger, msg kafka.Message, outcome string) {
	metrics.MessagesConsumedTotal.WithLabelValues(msg.Topic, outcome).Inc()
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.recordErr(err)
		log.WithError(err).Error("Failed to commit message")
	}
}

func (c *Consumer) recordErr(err error) {
	msg := err.Error()
	c.lastErr.Store(&msg)
}
