package chat

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Description  string      `json:"description" db:"description"`
	IsPublic     bool        `json:"isPublic" db:"is_public"`
	Participants []uuid.UUID `json:"participants" db:"participants"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time   `json:"updatedAt" db:"updated_at"`
}

type Sender struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
}

type Message struct {
	ID          uuid.UUID `json:"id" db:"id"`
	RoomID      uuid.UUID `json:"room" db:"room_id"`
	Sender      Sender    `json:"sender"`
	Text        string    `json:"text" db:"text"`
	Attachments []string  `json:"attachments" db:"attachments"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// MessageHistoryLimit is how many recent room messages are returned.
const MessageHistoryLimit = 50

type BotRole string

const (
	BotRoleUser      BotRole = "user"
	BotRoleAssistant BotRole = "assistant"
	BotRoleSystem    BotRole = "system"
)

type BotMessage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user" db:"user_id"`
	Role      BotRole   `json:"role" db:"role"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// BotHistoryLimit is how many recent chatbot messages are returned.
const BotHistoryLimit = 20

type BotMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

type BotExchange struct {
	User      *BotMessage `json:"user"`
	Assistant *BotMessage `json:"assistant"`
}

// Inbound and outbound websocket events.
const (
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"
	EventNewMessage  = "newMessage"
	EventError       = "error"
)

type Event struct {
	Type   string    `json:"type"`
	RoomID uuid.UUID `json:"roomId,omitempty"`
	Text   string    `json:"text,omitempty"`
	Data   any       `json:"data,omitempty"`
}

// DefaultRooms are seeded into an empty database.
var DefaultRooms = []Room{
	{Name: "General Fitness", Description: "Chat about overall fitness", IsPublic: true},
	{Name: "Nutrition", Description: "Discuss diets and meal plans", IsPublic: true},
	{Name: "Running", Description: "Runners community", IsPublic: true},
}
