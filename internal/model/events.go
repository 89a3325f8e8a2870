package model

// Event types carried on the bus
const (
	EventUserDeleted         = "user.deleted"
	EventChatMessageCreated  = "chat_message.created"
	EventAnnouncementCreated = "announcement.created"
	EventReportUpdated       = "report.updated"
)

// UserDeleted fires when a roster document is removed.
type UserDeleted struct {
	UserID string  `json:"userId" validate:"required"`
	Email  *string `json:"email,omitempty"`
}

type ChatMessageCreated struct {
	ConversationID string      `json:"conversationId" validate:"required"`
	MessageID      string      `json:"messageId" validate:"required"`
	Message        ChatMessage `json:"record"`
}

type AnnouncementCreated struct {
	AnnouncementID string       `json:"announcementId" validate:"required"`
	Announcement   Announcement `json:"record"`
}

type ReportUpdated struct {
	ReportID string `json:"reportId" validate:"required"`
	Before   Report `json:"before"`
	After    Report `json:"after"`
}
