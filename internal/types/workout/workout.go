package workout

import (
	"time"

	"github.com/google/uuid"
)

type Workout struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   uuid.UUID `json:"userId" db:"user_id"`
	Type     string    `json:"type" db:"type"`
	Duration float64   `json:"duration" db:"duration"`
	Calories float64   `json:"calories" db:"calories"`
	Date     time.Time `json:"date" db:"date"`
}

type CreateWorkoutRequest struct {
	Type     string     `json:"type" validate:"required"`
	Duration float64    `json:"duration" validate:"required,gt=0"`
	Calories *float64   `json:"calories" validate:"required,gte=0"`
	Date     *time.Time `json:"date,omitempty"`
}
