package challenge

import (
	"time"

	"github.com/google/uuid"
)

type CreateChallengeRequest struct {
	Title           string        `json:"title" validate:"required,max=100"`
	Description     string        `json:"description" validate:"required,max=500"`
	ChallengeType   ChallengeType `json:"challengeType" validate:"required,oneof=steps workouts distance calories active_minutes"`
	TargetValue     float64       `json:"targetValue" validate:"required,gt=0"`
	StartDate       time.Time     `json:"startDate" validate:"required"`
	EndDate         time.Time     `json:"endDate" validate:"required,gtfield=StartDate"`
	IsPublic        *bool         `json:"isPublic,omitempty"`
	MaxParticipants *int          `json:"maxParticipants,omitempty" validate:"omitempty,min=2,max=100"`
	CoverImage      string        `json:"coverImage,omitempty"`
	Rewards         *Rewards      `json:"rewards,omitempty"`
	Tags            []string      `json:"tags,omitempty"`
	AssignedUsers   []uuid.UUID   `json:"assignedUsers,omitempty"`
}

type UpdateProgressRequest struct {
	Progress *float64 `json:"progress" validate:"required,gte=0"`
}

type DeclareWinnerRequest struct {
	WinnerUserID uuid.UUID `json:"winnerUserId" validate:"required"`
	Message      string    `json:"message,omitempty"`
}

type ListFilter struct {
	Status Status
	Type   ChallengeType
	Search string
	Page   int
	Limit  int

	// PublicOnly hides private challenges from anonymous callers.
	PublicOnly bool
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// CreatorInfo is the populated createdBy reference.
type CreatorInfo struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name,omitempty"`
}

// ChallengeView is a challenge as returned by the API, with derived fields.
type ChallengeView struct {
	*Challenge
	Status         Status        `json:"status"`
	DurationInDays int           `json:"durationInDays"`
	Creator        *CreatorInfo  `json:"creator,omitempty"`
	IsParticipant  *bool         `json:"isParticipant,omitempty"`
	UserProgress   *ProgressView `json:"userProgress,omitempty"`
}

func NewView(c *Challenge, now time.Time) *ChallengeView {
	return &ChallengeView{
		Challenge:      c,
		Status:         c.StatusAt(now),
		DurationInDays: c.DurationInDays(),
	}
}

// WithCaller fills isParticipant and userProgress for userID.
func (v *ChallengeView) WithCaller(userID uuid.UUID) *ChallengeView {
	p := v.Participants.Get(userID)
	isParticipant := p != nil
	v.IsParticipant = &isParticipant
	if p != nil {
		v.UserProgress = p.View()
	}
	return v
}

type ListResponse struct {
	Count int              `json:"count"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Pages int              `json:"pages"`
	Data  []*ChallengeView `json:"data"`
}

type ApprovalResponse struct {
	ParticipantID string `json:"participantId"`
	Approved      bool   `json:"approved"`
}

type WinnerResponse struct {
	WinnerUserID uuid.UUID `json:"winnerUserId"`
	Message      string    `json:"message"`
}
