package nats

import (
	"context"
	"encoding/json"
	"fmt"

	natspkg "github.com/nats-io/nats.go"

	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/messaging"
)

type Config struct {
	URL  string
	Name string
}

type NatsBroker struct {
	nc     *natspkg.Conn
	logger *logger.Logger
}

func NewNatsBroker(config Config, log *logger.Logger) (messaging.Broker, error) {
	nc, err := natspkg.Connect(config.URL, natspkg.Name(config.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsBroker{nc: nc, logger: log.With("component", "nats_broker")}, nil
}

func (b *NatsBroker) Publish(_ context.Context, subject string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return b.nc.Publish(subject, payload)
}

func (b *NatsBroker) Subscribe(ctx context.Context, subject string) (<-chan []byte, error) {
	in := make(chan *natspkg.Msg, 100)
	sub, err := b.nc.ChanSubscribe(subject, in)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	out := make(chan []byte, 100)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				b.logger.Error(err, "Failed to unsubscribe", "subject", subject)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-in:
				select {
				case out <- msg.Data:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *NatsBroker) Close() error {
	b.nc.Close()
	return nil
}
