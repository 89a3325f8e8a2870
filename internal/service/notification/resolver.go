package notification

import (
	"context"
	"errors"

	"github.com/jwalitptl/emergency-notifier/internal/repository"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/metrics"
	"github.com/jwalitptl/emergency-notifier/pkg/optional"
)

// Resolver looks up a user's current delivery token.
type Resolver struct {
	users   repository.UserRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewResolver(users repository.UserRepository, log *logger.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{users: users, logger: log, metrics: m}
}

// Resolve returns the user's token, or None when the user is missing, has
// no token, or cannot be read. It never fails.
func (r *Resolver) Resolve(ctx context.Context, userID string) optional.Option[string] {
	log := logger.FromContext(ctx, r.logger)
	if userID == "" {
		log.Warn("Cannot resolve recipient without user id")
		return optional.None[string]()
	}

	user, err := r.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.metrics.RosterOperations.WithLabelValues("get_user", "not_found").Inc()
			log.Warn("Recipient not found", "user_id", userID)
		} else {
			r.metrics.RosterOperations.WithLabelValues("get_user", "error").Inc()
			log.Error(err, "Failed to load recipient", "user_id", userID)
		}
		return optional.None[string]()
	}
	r.metrics.RosterOperations.WithLabelValues("get_user", "success").Inc()

	token := user.Token()
	if token.IsNone() {
		log.Warn("Recipient has no delivery token", "user_id", userID)
	}
	return token
}
