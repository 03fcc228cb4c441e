package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeChallengeJoined  NotificationType = "challenge_joined"
	TypeChallengeCreated NotificationType = "challenge_created"
	TypeProgressUpdated  NotificationType = "progress_updated"
	TypeChallengeWinner  NotificationType = "challenge_winner"
)

type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Recipient   uuid.UUID        `json:"recipient" db:"recipient"`
	Sender      uuid.UUID        `json:"sender" db:"sender"`
	Type        NotificationType `json:"type" db:"type"`
	Title       string           `json:"title" db:"title"`
	Message     string           `json:"message" db:"message"`
	ChallengeID *uuid.UUID       `json:"challenge,omitempty" db:"challenge_id"`
	IsRead      bool             `json:"isRead" db:"is_read"`
	ReadAt      *time.Time       `json:"readAt,omitempty" db:"read_at"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
}

type DeviceToken struct {
	Token    string    `json:"token"`
	Platform string    `json:"platform"`
	AddedAt  time.Time `json:"added_at"`
	LastUsed time.Time `json:"last_used"`
}
