package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/pkg/errors"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/messaging"
)

const outcomeSkipped = "skipped"

type handlerFunc[T any] func(ctx context.Context, evt T) (Outcome, error)

// Register binds every trigger handler to its event type on bus.
func (s *Service) Register(bus *messaging.EventBus) {
	bus.Subscribe(model.EventUserDeleted, s.Guard(model.EventUserDeleted, bind(s, s.HandleUserDeleted)))
	bus.Subscribe(model.EventChatMessageCreated, s.Guard(model.EventChatMessageCreated, bind(s, s.HandleChatMessageCreated)))
	bus.Subscribe(model.EventAnnouncementCreated, s.Guard(model.EventAnnouncementCreated, bind(s, s.HandleAnnouncementCreated)))
	bus.Subscribe(model.EventReportUpdated, s.Guard(model.EventReportUpdated, bind(s, s.HandleReportUpdated)))
}

// bind decodes and validates an envelope payload before calling h.
func bind[T any](s *Service, h handlerFunc[T]) func(context.Context, *messaging.Envelope) (Outcome, error) {
	return func(ctx context.Context, env *messaging.Envelope) (Outcome, error) {
		var evt T
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			return Outcome{}, errors.Invalid("malformed event payload", err)
		}
		if err := s.validator.Validate(evt); err != nil {
			return Outcome{}, errors.Invalid("invalid event payload", err)
		}
		return h(ctx, evt)
	}
}

// Guard wraps a handler so that nothing escapes it: errors are logged by
// kind, panics are recovered, and the returned error is always nil.
func (s *Service) Guard(eventType string, h func(context.Context, *messaging.Envelope) (Outcome, error)) messaging.Handler {
	return func(ctx context.Context, env *messaging.Envelope) (err error) {
		log := s.logger.WithFields(map[string]interface{}{
			"event_id":      env.ID,
			"event_type":    eventType,
			"invocation_id": uuid.NewString(),
		})
		ctx = log.WithContext(ctx)

		start := time.Now()
		s.metrics.EventsReceived.WithLabelValues(eventType).Inc()
		defer func() {
			s.metrics.HandlerDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		}()

		defer func() {
			if r := recover(); r != nil {
				s.metrics.HandlerOutcomes.WithLabelValues(eventType, errors.KindInternal.String()).Inc()
				log.Error(fmt.Errorf("panic: %v", r), "Handler panicked",
					"stack", string(debug.Stack()),
					"payload", string(env.Payload),
				)
				err = nil
			}
		}()

		outcome, herr := h(ctx, env)
		s.report(log, eventType, env, outcome, herr)
		return nil
	}
}

func (s *Service) report(log *logger.Logger, eventType string, env *messaging.Envelope, outcome Outcome, err error) {
	if err == nil {
		label := "success"
		if outcome.Skipped {
			label = outcomeSkipped
			log.Debug("Event skipped", "reason", outcome.Reason)
		}
		s.metrics.HandlerOutcomes.WithLabelValues(eventType, label).Inc()
		return
	}

	kind := errors.KindOf(err)
	s.metrics.HandlerOutcomes.WithLabelValues(eventType, kind.String()).Inc()

	switch kind {
	case errors.KindNotFound, errors.KindInvalidDestination:
		log.Warn("Event handled with unreachable recipients",
			"kind", kind.String(),
			"error", err.Error(),
			"invalidated", len(outcome.Invalidated),
		)
	default:
		log.Error(err, "Event handling failed",
			"kind", kind.String(),
			"recipients", outcome.Stats.Recipients,
			"failure", outcome.Stats.Failure,
			"payload", string(env.Payload),
		)
	}
}
