// Package events publishes exchange and cycle failure events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ivr-voice-bridge-service/internal/observability/metrics"
)

// Publisher publishes cycle outcomes to separate Kafka topics.
type Publisher struct {
	writerExchange *kafka.Writer
	writerFailure  *kafka.Writer
	principal      string
	topicExchange  string
	topicFailure   string
	enabled        bool
	metrics        *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicExchange string
	TopicFailure  string
	Principal     string
	Enabled       bool
	Metrics       *metrics.Metrics
}

// New creates a new Kafka event publisher. With Kafka disabled or no brokers
// configured, events are only logged.
func New(cfg *Config) *Publisher {
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: metrics.DefaultMetrics,
		}
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.DefaultMetrics
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:     cfg.Principal,
			topicExchange: cfg.TopicExchange,
			topicFailure:  cfg.TopicFailure,
			enabled:       false,
			metrics:       m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicExchange", cfg.TopicExchange).
		Str("topicFailure", cfg.TopicFailure).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerExchange: newWriter(cfg.TopicExchange),
		writerFailure:  newWriter(cfg.TopicFailure),
		principal:      cfg.Principal,
		topicExchange:  cfg.TopicExchange,
		topicFailure:   cfg.TopicFailure,
		enabled:        true,
		metrics:        m,
	}
}

// PublishExchange publishes a completed exchange, keyed by caller identity.
func (p *Publisher) PublishExchange(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerExchange, p.topicExchange, "exchange", key, event)
}

// PublishFailure publishes an abandoned cycle, keyed by caller identity.
func (p *Publisher) PublishFailure(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerFailure, p.topicFailure, "failure", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerExchange != nil {
		if e := p.writerExchange.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing exchange writer")
			err = e
		}
	}
	if p.writerFailure != nil {
		if e := p.writerFailure.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing failure writer")
			err = e
		}
	}
	return err
}
