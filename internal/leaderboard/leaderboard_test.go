package leaderboard

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitTrackAPI/internal/types/challenge"
)

func TestPercentage(t *testing.T) {
	cases := []struct {
		progress, target float64
		want             int
	}{
		{0, 10000, 0},
		{3000, 10000, 30},
		{3333, 10000, 33},
		{6667, 10000, 67},
		{10000, 10000, 100},
		{15000, 10000, 100},
		{50, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Percentage(tc.progress, tc.target), "progress=%v target=%v", tc.progress, tc.target)
	}
}

func TestBuildOrdersByProgressStable(t *testing.T) {
	now := time.Now()
	a := &challenge.Participant{UserID: uuid.New(), Progress: 5000, LastUpdated: now}
	b := &challenge.Participant{UserID: uuid.New(), Progress: 9000, LastUpdated: now}
	c := &challenge.Participant{UserID: uuid.New(), Progress: 5000, LastUpdated: now}
	d := &challenge.Participant{UserID: uuid.New(), Progress: 12000, LastUpdated: now}

	entries := Build([]*challenge.Participant{a, b, c, d}, 10000)
	require.Len(t, entries, 4)

	got := []uuid.UUID{entries[0].User.ID, entries[1].User.ID, entries[2].User.ID, entries[3].User.ID}
	assert.Equal(t, []uuid.UUID{d.UserID, b.UserID, a.UserID, c.UserID}, got)
	assert.Equal(t, 100, entries[0].Percentage)
	assert.Equal(t, 90, entries[1].Percentage)

	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].Progress, entries[i].Progress)
	}
}

func TestForChallenge(t *testing.T) {
	now := time.Now()
	ch := &challenge.Challenge{
		ID:            uuid.New(),
		Title:         "Run club",
		ChallengeType: challenge.TypeDistance,
		TargetValue:   42,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		IsActive:      true,
		Participants:  challenge.NewParticipants(),
	}
	runner := uuid.New()
	_, err := ch.Join(runner, now)
	require.NoError(t, err)
	_, err = ch.UpdateProgress(runner, 21, now)
	require.NoError(t, err)

	lb := ForChallenge(ch, map[uuid.UUID]string{runner: "mara"})
	assert.Equal(t, challenge.TypeDistance, lb.Challenge.Unit)
	assert.Equal(t, 42.0, lb.Challenge.Target)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, "mara", lb.Entries[0].User.Username)
	assert.Equal(t, 50, lb.Entries[0].Percentage)
}

func TestForChallengeEmpty(t *testing.T) {
	ch := &challenge.Challenge{ID: uuid.New(), TargetValue: 10, Participants: challenge.NewParticipants()}
	lb := ForChallenge(ch, nil)
	assert.NotNil(t, lb.Entries)
	assert.Empty(t, lb.Entries)
}
