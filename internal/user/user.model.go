package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleTrainer Role = "trainer"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	Email        *string   `json:"email"`
	AvatarURL    *string   `json:"avatarUrl"`
	Role         Role      `json:"role"`
	Age          *int      `json:"age,omitempty"`
	Weight       *float64  `json:"weight,omitempty"`
	Gender       *string   `json:"gender,omitempty"`
	ClerkID      *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) IsTrainer() bool { return u.Role == RoleTrainer }

// Summary is the public listing shape of a user.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	Email     *string   `json:"email"`
	AvatarURL *string   `json:"avatarUrl"`
}
