package notification

import (
	"github.com/google/uuid"
)

type CreateNotificationRequest struct {
	Recipient   uuid.UUID        `json:"recipient" validate:"required"`
	Sender      uuid.UUID        `json:"sender" validate:"required"`
	Type        NotificationType `json:"type" validate:"required"`
	Title       string           `json:"title" validate:"required"`
	Message     string           `json:"message" validate:"required"`
	ChallengeID *uuid.UUID       `json:"challenge,omitempty"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
	TotalCount    int             `json:"total_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
}
