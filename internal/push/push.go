// Package push submits composed notifications to the push-delivery service.
package push

import (
	"context"

	"github.com/jwalitptl/emergency-notifier/internal/model"
)

// MaxBatchSize is the most messages the delivery service accepts per call.
const MaxBatchSize = 500

// Client sends one batch of deliveries. Implementations return one result
// per delivery in input order; a non-nil error means the whole batch failed
// and no per-delivery results are available.
type Client interface {
	SendEach(ctx context.Context, deliveries []model.Delivery) ([]model.DeliveryResult, error)
}
