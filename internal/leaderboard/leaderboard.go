package leaderboard

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"fitTrackAPI/internal/types/challenge"
)

type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type LeaderboardEntry struct {
	User        UserRef   `json:"user"`
	Progress    float64   `json:"progress"`
	Percentage  int       `json:"percentage"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type ChallengeRef struct {
	ID     uuid.UUID               `json:"id"`
	Title  string                  `json:"title"`
	Target float64                 `json:"target"`
	Unit   challenge.ChallengeType `json:"unit"`
}

type Leaderboard struct {
	Challenge ChallengeRef        `json:"challenge"`
	Entries   []*LeaderboardEntry `json:"leaderboard"`
}

// Percentage is progress as a share of target, rounded and capped at 100.
func Percentage(progress, target float64) int {
	if target <= 0 {
		return 0
	}
	pct := math.Round(progress / target * 100)
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return int(pct)
}

// Build ranks participants by descending progress. Equal progress keeps join
// order. Usernames are left empty for the caller to resolve.
func Build(participants []*challenge.Participant, target float64) []*LeaderboardEntry {
	ranked := make([]*challenge.Participant, len(participants))
	copy(ranked, participants)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Progress > ranked[j].Progress
	})

	entries := make([]*LeaderboardEntry, 0, len(ranked))
	for _, p := range ranked {
		entries = append(entries, &LeaderboardEntry{
			User:        UserRef{ID: p.UserID},
			Progress:    p.Progress,
			Percentage:  Percentage(p.Progress, target),
			LastUpdated: p.LastUpdated,
		})
	}
	return entries
}

// ForChallenge builds the full leaderboard of c, naming users through names.
func ForChallenge(c *challenge.Challenge, names map[uuid.UUID]string) *Leaderboard {
	entries := Build(c.Participants.All(), c.TargetValue)
	for _, e := range entries {
		e.User.Username = names[e.User.ID]
	}
	return &Leaderboard{
		Challenge: ChallengeRef{
			ID:     c.ID,
			Title:  c.Title,
			Target: c.TargetValue,
			Unit:   c.ChallengeType,
		},
		Entries: entries,
	}
}
