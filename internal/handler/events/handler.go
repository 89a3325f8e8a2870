package events

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/emergency-notifier/internal/handler"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/messaging"
	"github.com/jwalitptl/emergency-notifier/pkg/validator"
)

// Publisher puts an envelope on the event bus.
type Publisher interface {
	Publish(ctx context.Context, env *messaging.Envelope) error
}

// Handler accepts change events from the data store host and forwards them
// to the bus. Delivery happens asynchronously in the bus consumers.
type Handler struct {
	publisher Publisher
	validator validator.Validator
	known     map[string]struct{}
	logger    *logger.Logger
}

func NewHandler(publisher Publisher, v validator.Validator, eventTypes []string, log *logger.Logger) *Handler {
	known := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		known[t] = struct{}{}
	}
	return &Handler{
		publisher: publisher,
		validator: v,
		known:     known,
		logger:    log,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/events", h.Ingest)
}

func (h *Handler) Ingest(c *gin.Context) {
	var env messaging.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewValidationResponse("invalid request body", err))
		return
	}
	if err := h.validator.Validate(env); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewValidationResponse("invalid event", err))
		return
	}
	if _, ok := h.known[env.Type]; !ok {
		c.JSON(http.StatusUnprocessableEntity, handler.NewErrorResponse("unknown event type "+env.Type))
		return
	}

	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}

	log := logger.FromContext(c.Request.Context(), h.logger)
	if err := h.publisher.Publish(c.Request.Context(), &env); err != nil {
		log.Error(err, "Failed to publish event", "event_id", env.ID, "event_type", env.Type)
		c.JSON(http.StatusServiceUnavailable, handler.NewErrorResponse("failed to publish event"))
		return
	}

	log.Info("Event accepted", "event_id", env.ID, "event_type", env.Type)
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(gin.H{"id": env.ID}))
}
