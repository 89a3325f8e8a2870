package model

import (
	"time"
)

// ChatMessage lives under chats/{userId}/messages. UserID identifies the
// conversation owner; SenderID is whoever wrote the message.
type ChatMessage struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	SenderID   string    `json:"senderId" validate:"required"`
	SenderName string    `json:"senderName"`
	Message    string    `json:"message"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	VideoURL   string    `json:"videoUrl,omitempty"`
	AudioURL   string    `json:"audioUrl,omitempty"`
	FileURL    string    `json:"fileUrl,omitempty"`
	FileName   string    `json:"fileName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	Read       bool      `json:"read"`
}

// Announcement priority values
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

type Announcement struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Report is an emergency report snapshot. Status is free-form and compared
// case-insensitively.
type Report struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Location  string    `json:"location,omitempty"`
	Barangay  string    `json:"barangay,omitempty"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}
