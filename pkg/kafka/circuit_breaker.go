package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/DFCPagro/DFCP-sub001/pkg/cloudevents"
	"github.com/DFCPagro/DFCP-sub001/pkg/logging"
)

// CircuitBreakerProducer wraps a Producer with a circuit breaker so that a
// broker outage fails fast instead of stalling callers on every publish.
type CircuitBreakerProducer struct {
	producer *Producer
	breaker  *gobreaker.CircuitBreaker
	logger   *logging.Logger
}

// NewCircuitBreakerProducer creates a producer protected by a circuit breaker
func NewCircuitBreakerProducer(producer *Producer, logger *logging.Logger) *CircuitBreakerProducer {
	settings := gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("kafka circuit breaker state changed")
		},
	}

	return &CircuitBreakerProducer{
		producer: producer,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		logger:   logger,
	}
}

// PublishEvent publishes an event through the circuit breaker
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishEvent(ctx, topic, event)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("kafka publish rejected, circuit open: %w", err)
	}
	return err
}

// PublishBatch publishes a batch of events through the circuit breaker
func (p *CircuitBreakerProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.Event) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishBatch(ctx, topic, events)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("kafka publish rejected, circuit open: %w", err)
	}
	return err
}

// State returns the current breaker state
func (p *CircuitBreakerProducer) State() gobreaker.State {
	return p.breaker.State()
}

// Close closes the underlying producer
func (p *CircuitBreakerProducer) Close() error {
	return p.producer.Close()
}
