package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jwalitptl/emergency-notifier/pkg/logger"
)

// EventBus routes envelopes from a Broker to handlers registered per event
// type. Each received envelope is handled in its own goroutine; there is no
// ordering or locking across invocations.
type EventBus struct {
	broker   Broker
	prefix   string
	logger   *logger.Logger
	mu       sync.RWMutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewEventBus(broker Broker, channelPrefix string, log *logger.Logger) *EventBus {
	return &EventBus{
		broker:   broker,
		prefix:   channelPrefix,
		logger:   log.With("component", "event_bus"),
		handlers: make(map[string]Handler),
	}
}

// Subscribe binds handler to eventType. Must be called before Start.
func (b *EventBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = handler
}

func (b *EventBus) channel(eventType string) string {
	return b.prefix + eventType
}

// Publish sends env to the channel of its type.
func (b *EventBus) Publish(ctx context.Context, env *Envelope) error {
	if err := b.broker.Publish(ctx, b.channel(env.Type), env); err != nil {
		return fmt.Errorf("failed to publish %s: %w", env.Type, err)
	}
	return nil
}

// Dispatch invokes the handler bound to env.Type directly.
func (b *EventBus) Dispatch(ctx context.Context, env *Envelope) error {
	b.mu.RLock()
	h, ok := b.handlers[env.Type]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for %s", env.Type)
	}
	return h(ctx, env)
}

// Start subscribes to every registered event type and returns once all
// subscriptions are live. Consumption stops when ctx is cancelled.
func (b *EventBus) Start(ctx context.Context) error {
	b.mu.RLock()
	types := make([]string, 0, len(b.handlers))
	for t := range b.handlers {
		types = append(types, t)
	}
	b.mu.RUnlock()

	for _, t := range types {
		msgs, err := b.broker.Subscribe(ctx, b.channel(t))
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", t, err)
		}
		b.logger.Info("Subscribed", "event_type", t, "channel", b.channel(t))

		b.wg.Add(1)
		go b.consume(ctx, t, msgs)
	}
	return nil
}

// consume reads msgs until the broker closes the channel. Handlers run on a
// context detached from ctx: cancelling ctx stops consumption, but an
// invocation that already started runs to completion.
func (b *EventBus) consume(ctx context.Context, eventType string, msgs <-chan []byte) {
	defer b.wg.Done()
	handlerCtx := context.WithoutCancel(ctx)
	for raw := range msgs {
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			b.logger.Error(err, "Dropping undecodable message", "event_type", eventType)
			continue
		}
		if env.Type == "" {
			env.Type = eventType
		}

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.Dispatch(handlerCtx, &env); err != nil {
				b.logger.Error(err, "Handler returned error", "event_type", env.Type, "event_id", env.ID)
			}
		}()
	}
}

// Wait blocks until consumers and in-flight handlers have finished.
func (b *EventBus) Wait() {
	b.wg.Wait()
}

func (b *EventBus) Close() error {
	return b.broker.Close()
}
