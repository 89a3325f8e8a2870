package push

import (
	"context"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
)

// LogClient logs deliveries instead of sending them. Every delivery
// succeeds.
type LogClient struct {
	logger *logger.Logger
}

func NewLogClient(log *logger.Logger) *LogClient {
	return &LogClient{logger: log.With("component", "log_push")}
}

func (c *LogClient) SendEach(_ context.Context, deliveries []model.Delivery) ([]model.DeliveryResult, error) {
	results := make([]model.DeliveryResult, len(deliveries))
	for i, d := range deliveries {
		c.logger.Info("Dispatching notification",
			"user_id", d.UserID,
			"title", d.Payload.Title,
			"body", d.Payload.Body,
			"type", d.Payload.Data["type"],
		)
		results[i] = model.DeliveryResult{UserID: d.UserID, Token: d.Token, Success: true}
	}
	return results, nil
}
