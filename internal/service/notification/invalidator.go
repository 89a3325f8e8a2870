package notification

import (
	"context"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/repository"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/metrics"
)

// Invalidator removes tokens the delivery service reported as permanently
// unusable.
type Invalidator struct {
	users   repository.UserRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewInvalidator(users repository.UserRepository, log *logger.Logger, m *metrics.Metrics) *Invalidator {
	return &Invalidator{users: users, logger: log, metrics: m}
}

// Reconcile clears the token of every user whose result carries an
// unregistered or invalid-token code and returns those user ids. Transient
// failures leave the roster untouched.
func (v *Invalidator) Reconcile(ctx context.Context, results []model.DeliveryResult) []string {
	log := logger.FromContext(ctx, v.logger)

	var invalidated []string
	seen := make(map[string]struct{})
	for _, r := range results {
		if r.Success || !r.ErrorCode.Permanent() || r.UserID == "" {
			continue
		}
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}

		if err := v.users.ClearToken(ctx, r.UserID); err != nil {
			v.metrics.RosterOperations.WithLabelValues("clear_token", "error").Inc()
			log.Error(err, "Failed to clear delivery token", "user_id", r.UserID)
			continue
		}
		v.metrics.RosterOperations.WithLabelValues("clear_token", "success").Inc()
		v.metrics.TokensInvalidated.Inc()
		log.Info("Cleared unusable delivery token", "user_id", r.UserID, "code", string(r.ErrorCode))
		invalidated = append(invalidated, r.UserID)
	}
	return invalidated
}
