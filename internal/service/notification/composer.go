package notification

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/emergency-notifier/internal/model"
)

const (
	maxAnnouncementBody = 100
	ellipsis            = "..."
	defaultSound        = "default"

	channelChat          = "chat_messages"
	channelAnnouncements = "announcements"
	channelReports       = "report_updates"

	announcementPlaceholder = "You have a new announcement from the response team"
)

// Announcement titles by priority
const (
	titleAnnouncementUrgent   = "🚨 URGENT ALERT"
	titleAnnouncementStandard = "📢 New Announcement"
	titleAnnouncementInfo     = "ℹ️ Announcement"
)

// Attachment labels, in the order they take precedence
var attachmentLabels = []struct {
	url   func(m model.ChatMessage) string
	label string
}{
	{func(m model.ChatMessage) string { return m.ImageURL }, "📷 Photo"},
	{func(m model.ChatMessage) string { return m.VideoURL }, "🎥 Video"},
	{func(m model.ChatMessage) string { return m.AudioURL }, "🎵 Audio"},
	{func(m model.ChatMessage) string { return m.FileURL }, "📎 File"},
}

// Compose maps a record to a payload. record must be one of
// model.ChatMessage, model.Announcement or model.Report.
func Compose(record interface{}) (model.Payload, error) {
	switch r := record.(type) {
	case model.ChatMessage:
		return ComposeChatMessage(r), nil
	case model.Announcement:
		return ComposeAnnouncement(r), nil
	case model.Report:
		return ComposeReportStatus(r), nil
	default:
		return model.Payload{}, fmt.Errorf("cannot compose notification for %T", record)
	}
}

func ComposeChatMessage(m model.ChatMessage) model.Payload {
	title := "New message"
	if name := strings.TrimSpace(m.SenderName); name != "" {
		title = "New message from " + name
	}

	return model.Payload{
		Title: title,
		Body:  chatBody(m),
		Data: map[string]string{
			"type":       model.KindChatMessage,
			"chatId":     m.UserID,
			"messageId":  m.ID,
			"senderId":   m.SenderID,
			"senderName": m.SenderName,
		},
		Hints: model.PlatformHints{
			Sound:     defaultSound,
			ChannelID: channelChat,
			Priority:  model.DeliveryPriorityHigh,
		},
	}
}

func chatBody(m model.ChatMessage) string {
	for _, a := range attachmentLabels {
		if a.url(m) != "" {
			return a.label
		}
	}
	if m.Message != "" {
		return m.Message
	}
	return "Sent you a message"
}

func ComposeAnnouncement(a model.Announcement) model.Payload {
	title := titleAnnouncementInfo
	priority := model.DeliveryPriorityNormal
	switch a.Priority {
	case model.PriorityHigh:
		title = titleAnnouncementUrgent
		priority = model.DeliveryPriorityHigh
	case model.PriorityMedium:
		title = titleAnnouncementStandard
	}

	body := announcementPlaceholder
	if a.Description != "" {
		body = Truncate(a.Description, maxAnnouncementBody)
	}

	return model.Payload{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":             model.KindAnnouncement,
			"announcementId":   a.ID,
			"announcementType": a.Type,
			"priority":         a.Priority,
		},
		Hints: model.PlatformHints{
			Sound:     defaultSound,
			ChannelID: channelAnnouncements,
			Priority:  priority,
		},
	}
}

// Truncate shortens s to at most limit runes, ending in an ellipsis when cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}

func ComposeReportStatus(r model.Report) model.Payload {
	reportType := strings.TrimSpace(r.Type)
	if reportType == "" {
		reportType = "emergency"
	}

	var title, body string
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "responding", "in progress":
		title = "🚑 Help Is On The Way"
		body = fmt.Sprintf("Responders are on their way to your %s report", reportType)
	case "resolved", "completed":
		title = "✅ Report Resolved"
		body = fmt.Sprintf("Your %s report has been resolved", reportType)
	case "cancelled", "rejected":
		title = "❌ Report Cancelled"
		body = fmt.Sprintf("Your %s report has been cancelled", reportType)
	case "pending":
		title = "⏳ Report Pending"
		body = fmt.Sprintf("Your %s report is pending review", reportType)
	default:
		title = "📋 Report Status Updated"
		body = fmt.Sprintf("Your %s report status is now: %s", reportType, r.Status)
	}

	if loc := reportLocation(r); loc != "" {
		body += " at " + loc
	}

	return model.Payload{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":       model.KindReportStatus,
			"reportId":   r.ID,
			"reportType": r.Type,
			"status":     r.Status,
		},
		Hints: model.PlatformHints{
			Sound:     defaultSound,
			ChannelID: channelReports,
			Priority:  model.DeliveryPriorityHigh,
		},
	}
}

func reportLocation(r model.Report) string {
	if loc := strings.TrimSpace(r.Location); loc != "" {
		return loc
	}
	return strings.TrimSpace(r.Barangay)
}
