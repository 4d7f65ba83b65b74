package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/core/ports"
)

// inMemoryEventBus implements the ports.EventBus interface
type inMemoryEventBus struct {
	log         zerolog.Logger
	subscribers map[string][]ports.EventHandler
	workers     chan struct{}
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new, empty event bus. workers bounds how
// many handlers may run concurrently.
func NewInMemoryEventBus(workers int, baseLogger *zerolog.Logger) ports.EventBus {
	if workers < 1 {
		workers = 1
	}
	return &inMemoryEventBus{
		log:         baseLogger.With().Str("component", "in_memory_bus").Logger(),
		subscribers: make(map[string][]ports.EventHandler),
		workers:     make(chan struct{}, workers),
	}
}

// Publish sends an event to all subscribers of a topic. Each handler runs
// on its own goroutine, drawn from the bounded worker pool, so interactions
// are processed concurrently but a flood of updates cannot spawn without
// limit. When the pool is exhausted Publish blocks, which pushes back on
// the update server.
func (b *inMemoryEventBus) Publish(ctx context.Context, topic string, data interface{}) error {
	b.mu.RLock()
	handlers, ok := b.subscribers[topic]
	b.mu.RUnlock()
	if !ok {
		b.log.Warn().Str("topic", topic).Msg("Published event with no subscribers")
		return nil
	}

	event := ports.Event{
		Topic: topic,
		Data:  data,
	}

	for _, handler := range handlers {
		select {
		case b.workers <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		go func(h ports.EventHandler) {
			defer func() { <-b.workers }()
			// A fresh background context: the handler must not be
			// cancelled just because the publisher moved on.
			if err := h(context.Background(), event); err != nil {
				b.log.Error().Err(err).Str("topic", topic).Msg("Event handler failed")
			}
		}(handler)
	}

	b.log.Debug().Str("topic", topic).Int("handlers", len(handlers)).Msg("Event published")
	return nil
}

// Subscribe registers a handler for a specific topic
func (b *inMemoryEventBus) Subscribe(topic string, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[topic] = append(b.subscribers[topic], handler)
	b.log.Info().Str("topic", topic).Msg("New handler subscribed to topic")
}
