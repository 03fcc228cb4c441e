package challenge

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type ChallengeType string

const (
	TypeSteps         ChallengeType = "steps"
	TypeWorkouts      ChallengeType = "workouts"
	TypeDistance      ChallengeType = "distance"
	TypeCalories      ChallengeType = "calories"
	TypeActiveMinutes ChallengeType = "active_minutes"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

const (
	DefaultCoverImage    = "default-challenge.jpg"
	DefaultWinnerMessage = "Congratulations, you are the winner!"
)

func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusUpcoming, StatusActive, StatusCompleted:
		return true
	}
	return false
}

type Rewards struct {
	Points int    `json:"points"`
	Badge  string `json:"badge,omitempty"`
}

type Challenge struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	Title           string        `json:"title" db:"title"`
	Description     string        `json:"description" db:"description"`
	ChallengeType   ChallengeType `json:"challengeType" db:"challenge_type"`
	TargetValue     float64       `json:"targetValue" db:"target_value"`
	StartDate       time.Time     `json:"startDate" db:"start_date"`
	EndDate         time.Time     `json:"endDate" db:"end_date"`
	CreatedBy       uuid.UUID     `json:"createdBy" db:"created_by"`
	IsActive        bool          `json:"isActive" db:"is_active"`
	IsPublic        bool          `json:"isPublic" db:"is_public"`
	MaxParticipants *int          `json:"maxParticipants,omitempty" db:"max_participants"`
	CoverImage      string        `json:"coverImage" db:"cover_image"`
	Rewards         Rewards       `json:"rewards" db:"rewards"`
	Tags            []string      `json:"tags" db:"tags"`
	Participants    *Participants `json:"participants" db:"participants"`

	WinnerUser        *uuid.UUID `json:"winnerUser" db:"winner_user"`
	WinnerMessage     *string    `json:"winnerMessage" db:"winner_message"`
	WinnerAnnouncedAt *time.Time `json:"winnerAnnouncedAt" db:"winner_announced_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// StatusAt derives the temporal status of the challenge at now.
func (c *Challenge) StatusAt(now time.Time) Status {
	if now.Before(c.StartDate) {
		return StatusUpcoming
	}
	if now.After(c.EndDate) || !c.IsActive {
		return StatusCompleted
	}
	return StatusActive
}

// IsCompletedAt reports whether the challenge no longer accepts participants.
func (c *Challenge) IsCompletedAt(now time.Time) bool {
	return c.EndDate.Before(now) || !c.IsActive
}

func (c *Challenge) DurationInDays() int {
	return int(math.Ceil(c.EndDate.Sub(c.StartDate).Hours() / 24))
}

func (c *Challenge) IsCreator(userID uuid.UUID) bool {
	return c.CreatedBy == userID
}

// Join appends a fresh participant record for userID.
func (c *Challenge) Join(userID uuid.UUID, now time.Time) (*Participant, error) {
	if c.IsCompletedAt(now) {
		return nil, ErrChallengeEnded
	}
	if c.Participants.Has(userID) {
		return nil, ErrAlreadyJoined
	}
	if c.MaxParticipants != nil && c.Participants.Len() >= *c.MaxParticipants {
		return nil, ErrChallengeFull
	}
	return c.Participants.Add(userID, now), nil
}

// UpdateProgress records a new measured value for userID and applies the
// completion rules against the target.
func (c *Challenge) UpdateProgress(userID uuid.UUID, progress float64, now time.Time) (*Participant, error) {
	p := c.Participants.Get(userID)
	if p == nil {
		return nil, ErrNotParticipant
	}
	p.ApplyProgress(progress, c.TargetValue, now)
	return p, nil
}

// Approve marks a completed participant as approved by trainerID. The
// participant is looked up by record id first, then by user id.
func (c *Challenge) Approve(participantID string, trainerID uuid.UUID, now time.Time) (*Participant, error) {
	if !c.IsCreator(trainerID) {
		return nil, ErrNotCreator
	}
	p := c.Participants.Lookup(participantID)
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	if !p.Completed {
		return nil, ErrNotCompleted
	}
	p.approve(trainerID, now)
	return p, nil
}

// DeclareWinner records winnerID as the challenge winner.
func (c *Challenge) DeclareWinner(winnerID, trainerID uuid.UUID, message string, now time.Time) error {
	if !c.IsCreator(trainerID) {
		return ErrNotCreator
	}
	p := c.Participants.Get(winnerID)
	if p == nil {
		return ErrWinnerNotParticipant
	}
	if !p.ApprovedByTrainer {
		return ErrWinnerNotApproved
	}
	if message == "" {
		message = DefaultWinnerMessage
	}
	c.WinnerUser = &winnerID
	c.WinnerMessage = &message
	c.WinnerAnnouncedAt = &now
	return nil
}
