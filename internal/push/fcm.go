package push

import (
	"context"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/messaging"

	"github.com/jwalitptl/emergency-notifier/internal/model"
)

// Sender is the subset of messaging.Client used here.
type Sender interface {
	SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error)
}

// FCMClient delivers through Firebase Cloud Messaging.
type FCMClient struct {
	sender   Sender
	classify func(error) model.ErrorCode
}

func NewFCMClient(sender Sender) *FCMClient {
	return &FCMClient{sender: sender, classify: Classify}
}

func (c *FCMClient) SendEach(ctx context.Context, deliveries []model.Delivery) ([]model.DeliveryResult, error) {
	if len(deliveries) == 0 {
		return nil, nil
	}
	if len(deliveries) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit of %d", len(deliveries), MaxBatchSize)
	}

	msgs := make([]*messaging.Message, len(deliveries))
	for i, d := range deliveries {
		msgs[i] = toMessage(d)
	}

	resp, err := c.sender.SendEach(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to send batch: %w", err)
	}
	if resp == nil || len(resp.Responses) != len(deliveries) {
		return nil, fmt.Errorf("delivery service returned %d responses for %d messages", responseCount(resp), len(deliveries))
	}

	results := make([]model.DeliveryResult, len(deliveries))
	for i, r := range resp.Responses {
		results[i] = model.DeliveryResult{
			UserID:  deliveries[i].UserID,
			Token:   deliveries[i].Token,
			Success: r.Success,
		}
		if !r.Success {
			results[i].ErrorCode = c.classify(r.Error)
			results[i].Err = r.Error
		}
	}
	return results, nil
}

func responseCount(resp *messaging.BatchResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Responses)
}

// Classify maps a per-message FCM error to a delivery error code. FCM reports
// oversized or malformed payloads as INVALID_ARGUMENT too, so only argument
// errors naming the registration token count as a bad token.
func Classify(err error) model.ErrorCode {
	switch {
	case err == nil:
		return model.ErrorCodeNone
	case messaging.IsUnregistered(err):
		return model.ErrorCodeUnregistered
	case messaging.IsInvalidArgument(err) && mentionsToken(err):
		return model.ErrorCodeInvalidToken
	default:
		return model.ErrorCodeOther
	}
}

func mentionsToken(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "registration token")
}

func toMessage(d model.Delivery) *messaging.Message {
	p := d.Payload
	apnsPriority := "5"
	if p.Hints.Priority == model.DeliveryPriorityHigh {
		apnsPriority = "10"
	}

	return &messaging.Message{
		Token: d.Token,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Data: p.Data,
		Android: &messaging.AndroidConfig{
			Priority: string(p.Hints.Priority),
			Notification: &messaging.AndroidNotification{
				Sound:     p.Hints.Sound,
				ChannelID: p.Hints.ChannelID,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": apnsPriority},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: p.Hints.Sound},
			},
		},
	}
}
