package model

// Notification kinds, echoed to clients as data.type
const (
	KindChatMessage  = "chat_message"
	KindAnnouncement = "announcement"
	KindReportStatus = "report_status"
)

// DeliveryPriority is the platform delivery class
type DeliveryPriority string

const (
	DeliveryPriorityHigh   DeliveryPriority = "high"
	DeliveryPriorityNormal DeliveryPriority = "normal"
)

// PlatformHints carries platform-specific delivery options.
type PlatformHints struct {
	Sound     string           `json:"sound"`
	ChannelID string           `json:"channel"`
	Priority  DeliveryPriority `json:"priority"`
}

// Payload is a composed notification, independent of its destination.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
	Hints PlatformHints     `json:"platformHints"`
}

// Delivery pairs a destination with the payload to send there.
type Delivery struct {
	UserID  string
	Token   string
	Payload Payload
}

// ErrorCode is the per-destination failure code reported by dispatch.
type ErrorCode string

const (
	ErrorCodeNone         ErrorCode = ""
	ErrorCodeUnregistered ErrorCode = "unregistered"
	ErrorCodeInvalidToken ErrorCode = "invalid-token"
	ErrorCodeOther        ErrorCode = "other"
)

// Permanent reports whether the destination can never succeed again.
func (c ErrorCode) Permanent() bool {
	return c == ErrorCodeUnregistered || c == ErrorCodeInvalidToken
}

// DeliveryResult is the outcome for one Delivery.
type DeliveryResult struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	Success   bool      `json:"success"`
	ErrorCode ErrorCode `json:"errorCode,omitempty"`
	Err       error     `json:"-"`
}

// DeliveryStats aggregates a fan-out.
type DeliveryStats struct {
	Recipients  int `json:"recipients"`
	Success     int `json:"success"`
	Failure     int `json:"failure"`
	Invalidated int `json:"invalidated"`
}

// Tally counts successes and failures in results.
func Tally(results []DeliveryResult) DeliveryStats {
	stats := DeliveryStats{Recipients: len(results)}
	for _, r := range results {
		if r.Success {
			stats.Success++
		} else {
			stats.Failure++
		}
	}
	return stats
}
