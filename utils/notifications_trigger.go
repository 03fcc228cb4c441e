package utils

import (
	"fmt"

	"github.com/google/uuid"

	"fitTrackAPI/internal/notification"
	"fitTrackAPI/internal/types/challenge"
)

// ParticipantJoined tells the creator that actorName joined c.
func ParticipantJoined(c *challenge.Challenge, actorID uuid.UUID, actorName string) *notification.CreateNotificationRequest {
	return &notification.CreateNotificationRequest{
		Recipient:   c.CreatedBy,
		Sender:      actorID,
		Type:        notification.TypeChallengeJoined,
		Title:       "New Challenge Participant",
		Message:     fmt.Sprintf("%s joined your challenge %q", actorName, c.Title),
		ChallengeID: &c.ID,
	}
}

// ChallengeAssigned tells each assigned user, other than the creator, about
// the new challenge c.
func ChallengeAssigned(c *challenge.Challenge, assigned []uuid.UUID) []*notification.CreateNotificationRequest {
	reqs := make([]*notification.CreateNotificationRequest, 0, len(assigned))
	for _, userID := range assigned {
		if userID == c.CreatedBy {
			continue
		}
		reqs = append(reqs, &notification.CreateNotificationRequest{
			Recipient:   userID,
			Sender:      c.CreatedBy,
			Type:        notification.TypeChallengeCreated,
			Title:       "New Challenge Assigned",
			Message:     fmt.Sprintf("You have been assigned to a new challenge: %s", c.Title),
			ChallengeID: &c.ID,
		})
	}
	return reqs
}

// WinnerDeclared congratulates the winner of c.
func WinnerDeclared(c *challenge.Challenge, trainerID, winnerID uuid.UUID, message string) *notification.CreateNotificationRequest {
	return &notification.CreateNotificationRequest{
		Recipient:   winnerID,
		Sender:      trainerID,
		Type:        notification.TypeChallengeWinner,
		Title:       "You won a challenge!",
		Message:     fmt.Sprintf("Congratulations! You won the challenge %q. %s", c.Title, message),
		ChallengeID: &c.ID,
	}
}
