package measurement

import (
	"time"

	"github.com/google/uuid"
)

// Measurement is one body progress entry.
type Measurement struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"userId" db:"user_id"`
	Weight          float64   `json:"weight" db:"weight"`
	BodyFat         *float64  `json:"bodyFat,omitempty" db:"body_fat"`
	Chest           *float64  `json:"chest,omitempty" db:"chest"`
	Waist           *float64  `json:"waist,omitempty" db:"waist"`
	Notes           string    `json:"notes" db:"notes"`
	MeasurementDate time.Time `json:"measurementDate" db:"measurement_date"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

type CreateMeasurementRequest struct {
	Weight          float64    `json:"weight" validate:"required,gt=0"`
	BodyFat         *float64   `json:"bodyFat,omitempty" validate:"omitempty,gte=0"`
	Chest           *float64   `json:"chest,omitempty" validate:"omitempty,gt=0"`
	Waist           *float64   `json:"waist,omitempty" validate:"omitempty,gt=0"`
	Notes           string     `json:"notes,omitempty"`
	MeasurementDate *time.Time `json:"measurementDate,omitempty"`
}

type Change struct {
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

type Changes struct {
	Weight  *Change `json:"weight"`
	BodyFat *Change `json:"bodyFat"`
}

type Summary struct {
	Latest   *Measurement   `json:"latest"`
	Previous *Measurement   `json:"previous"`
	History  []*Measurement `json:"history"`
	Changes  Changes        `json:"changes"`
}

// SummaryLimit is how many recent entries a summary covers.
const SummaryLimit = 10

// Summarize builds a summary from entries ordered newest first. It returns
// nil when there are no entries.
func Summarize(entries []*Measurement) *Summary {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) > SummaryLimit {
		entries = entries[:SummaryLimit]
	}

	s := &Summary{Latest: entries[0], History: entries}
	if len(entries) > 1 {
		current, previous := entries[0], entries[1]
		s.Previous = previous
		s.Changes.Weight = change(current.Weight, previous.Weight)
		if current.BodyFat != nil && previous.BodyFat != nil && *current.BodyFat != 0 && *previous.BodyFat != 0 {
			s.Changes.BodyFat = change(*current.BodyFat, *previous.BodyFat)
		}
	}
	return s
}

func change(current, previous float64) *Change {
	c := &Change{Value: current - previous}
	if previous != 0 {
		c.Percentage = (current - previous) / previous * 100
	}
	return c
}
