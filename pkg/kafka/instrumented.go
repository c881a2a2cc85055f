package kafka

import (
	"context"
	"time"

	"github.com/DFCPagro/DFCP-sub001/pkg/cloudevents"
	"github.com/DFCPagro/DFCP-sub001/pkg/metrics"
)

// EventPublisher is the publishing surface shared by the plain, breaker and
// instrumented producers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error
	PublishBatch(ctx context.Context, topic string, events []*cloudevents.Event) error
	Close() error
}

// InstrumentedProducer records publish metrics around an EventPublisher
type InstrumentedProducer struct {
	inner   EventPublisher
	metrics *metrics.Metrics
}

// NewInstrumentedProducer wraps an EventPublisher with metrics recording
func NewInstrumentedProducer(inner EventPublisher, m *metrics.Metrics) *InstrumentedProducer {
	return &InstrumentedProducer{inner: inner, metrics: m}
}

// PublishEvent publishes a single event and records the outcome
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error {
	start := time.Now()
	err := p.inner.PublishEvent(ctx, topic, event)
	p.metrics.RecordKafkaPublish(topic, err == nil, time.Since(start))
	return err
}

// PublishBatch publishes a batch and records one observation per event
func (p *InstrumentedProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.Event) error {
	start := time.Now()
	err := p.inner.PublishBatch(ctx, topic, events)
	elapsed := time.Since(start)
	for range events {
		p.metrics.RecordKafkaPublish(topic, err == nil, elapsed)
	}
	return err
}

// Close closes the wrapped publisher
func (p *InstrumentedProducer) Close() error {
	return p.inner.Close()
}
