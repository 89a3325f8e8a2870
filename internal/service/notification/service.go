package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/emergency-notifier/internal/identity"
	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/push"
	"github.com/jwalitptl/emergency-notifier/internal/repository"
	"github.com/jwalitptl/emergency-notifier/pkg/circuitbreaker"
	"github.com/jwalitptl/emergency-notifier/pkg/errors"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/metrics"
	"github.com/jwalitptl/emergency-notifier/pkg/optional"
	"github.com/jwalitptl/emergency-notifier/pkg/validator"
)

// Outcome describes what a handler did with one event.
type Outcome struct {
	Skipped         bool
	Reason          string
	Stats           model.DeliveryStats
	Invalidated     []string
	IdentityDeleted bool
}

func skipped(reason string) Outcome {
	return Outcome{Skipped: true, Reason: reason}
}

type Deps struct {
	Users      repository.UserRepository
	Identities identity.Directory
	Push       push.Client
	Breaker    *circuitbreaker.CircuitBreaker
	Dispatch   DispatcherConfig
	Validator  validator.Validator
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

// Service holds the trigger handlers. It keeps no per-event state; every
// invocation reads the roster fresh.
type Service struct {
	users       repository.UserRepository
	identities  identity.Directory
	resolver    *Resolver
	dispatcher  *Dispatcher
	invalidator *Invalidator
	validator   validator.Validator
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewService(deps Deps) *Service {
	log := deps.Logger.With("component", "notifier")
	v := deps.Validator
	if v == nil {
		v = validator.New()
	}

	return &Service{
		users:       deps.Users,
		identities:  deps.Identities,
		resolver:    NewResolver(deps.Users, log, deps.Metrics),
		dispatcher:  NewDispatcher(deps.Push, deps.Dispatch, deps.Breaker, log, deps.Metrics),
		invalidator: NewInvalidator(deps.Users, log, deps.Metrics),
		validator:   v,
		logger:      log,
		metrics:     deps.Metrics,
	}
}

// HandleUserDeleted removes the auth identity matching a deleted roster
// entry's email.
func (s *Service) HandleUserDeleted(ctx context.Context, evt model.UserDeleted) (Outcome, error) {
	log := logger.FromContext(ctx, s.logger)

	email, ok := optional.FromPtr(evt.Email).Get()
	email = strings.TrimSpace(email)
	if !ok || email == "" {
		log.Warn("Deleted user has no email, skipping auth cleanup", "user_id", evt.UserID)
		return skipped("no email on deleted user"), nil
	}

	deleted, err := s.identities.DeleteByEmail(ctx, email)
	if err != nil {
		return Outcome{}, errors.Transient("failed to delete auth identity", err)
	}
	if !deleted {
		log.Info("No auth identity for deleted user", "user_id", evt.UserID, "email", email)
		return skipped("auth identity not found"), nil
	}

	log.Info("Deleted auth identity", "user_id", evt.UserID, "email", email)
	return Outcome{IdentityDeleted: true}, nil
}

// HandleChatMessageCreated notifies the other participant of a new message.
func (s *Service) HandleChatMessageCreated(ctx context.Context, evt model.ChatMessageCreated) (Outcome, error) {
	msg := evt.Message
	if msg.ID == "" {
		msg.ID = evt.MessageID
	}
	recipient := msg.UserID
	if recipient == "" {
		recipient = evt.ConversationID
	}

	if msg.SenderID == recipient {
		return skipped("sender is recipient"), nil
	}

	token, ok := s.resolver.Resolve(ctx, recipient).Get()
	if !ok {
		return skipped("recipient has no delivery token"), nil
	}

	payload := ComposeChatMessage(msg)
	return s.deliver(ctx, []model.Delivery{{UserID: recipient, Token: token, Payload: payload}})
}

// HandleAnnouncementCreated fans an announcement out to every user with a
// token.
func (s *Service) HandleAnnouncementCreated(ctx context.Context, evt model.AnnouncementCreated) (Outcome, error) {
	log := logger.FromContext(ctx, s.logger)

	users, err := s.users.ListWithToken(ctx)
	if err != nil {
		s.metrics.RosterOperations.WithLabelValues("list_with_token", "error").Inc()
		return Outcome{}, errors.Transient("failed to list recipients", err)
	}
	s.metrics.RosterOperations.WithLabelValues("list_with_token", "success").Inc()

	ann := evt.Announcement
	if ann.ID == "" {
		ann.ID = evt.AnnouncementID
	}
	payload := ComposeAnnouncement(ann)

	deliveries := make([]model.Delivery, 0, len(users))
	for _, u := range users {
		if token, ok := u.Token().Get(); ok {
			deliveries = append(deliveries, model.Delivery{UserID: u.ID, Token: token, Payload: payload})
		}
	}
	if len(deliveries) == 0 {
		log.Info("No users with delivery tokens, skipping announcement", "announcement_id", ann.ID)
		return skipped("no recipients"), nil
	}

	outcome, err := s.deliver(ctx, deliveries)
	log.Info("Announcement fan-out complete",
		"announcement_id", ann.ID,
		"recipients", outcome.Stats.Recipients,
		"success", outcome.Stats.Success,
		"failure", outcome.Stats.Failure,
		"invalidated", outcome.Stats.Invalidated,
	)
	return outcome, err
}

// HandleReportUpdated notifies a report's owner when its status changes.
func (s *Service) HandleReportUpdated(ctx context.Context, evt model.ReportUpdated) (Outcome, error) {
	if evt.Before.Status == evt.After.Status {
		return skipped("status unchanged"), nil
	}

	report := evt.After
	if report.ID == "" {
		report.ID = evt.ReportID
	}
	if report.UserID == "" {
		logger.FromContext(ctx, s.logger).Warn("Report has no owner", "report_id", report.ID)
		return skipped("report has no owner"), nil
	}

	token, ok := s.resolver.Resolve(ctx, report.UserID).Get()
	if !ok {
		return skipped("recipient has no delivery token"), nil
	}

	payload := ComposeReportStatus(report)
	return s.deliver(ctx, []model.Delivery{{UserID: report.UserID, Token: token, Payload: payload}})
}

// deliver runs dispatch then reconcile and summarises the results.
func (s *Service) deliver(ctx context.Context, deliveries []model.Delivery) (Outcome, error) {
	results := s.dispatcher.Dispatch(ctx, deliveries)
	invalidated := s.invalidator.Reconcile(ctx, results)

	stats := model.Tally(results)
	stats.Invalidated = len(invalidated)
	outcome := Outcome{Stats: stats, Invalidated: invalidated}

	return outcome, deliveryError(results)
}

// deliveryError classifies failed results: any transient failure wins over
// invalid destinations.
func deliveryError(results []model.DeliveryResult) error {
	var transient, invalid int
	var firstTransient, firstInvalid *model.DeliveryResult
	for i := range results {
		r := &results[i]
		switch {
		case r.Success:
		case r.ErrorCode.Permanent():
			invalid++
			if firstInvalid == nil {
				firstInvalid = r
			}
		default:
			transient++
			if firstTransient == nil {
				firstTransient = r
			}
		}
	}

	switch {
	case transient > 0:
		return errors.Transient(fmt.Sprintf("%d of %d deliveries failed", transient, len(results)), firstTransient.Err)
	case invalid > 0:
		return errors.InvalidDestination(firstInvalid.UserID, firstInvalid.Err)
	default:
		return nil
	}
}
