package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/notification"
	"fitTrackAPI/internal/types/challenge"
	"fitTrackAPI/internal/user"
)

type challengeFixture struct {
	svc      *ChallengeService
	store    *memChallengeStore
	notifier *recordingNotifier
	trainer  *user.User
	athlete  *user.User
	now      time.Time
}

func newChallengeFixture(t *testing.T) *challengeFixture {
	t.Helper()
	f := &challengeFixture{
		store:    newMemChallengeStore(),
		notifier: &recordingNotifier{},
		trainer:  &user.User{ID: uuid.New(), Username: "coach", Role: user.RoleTrainer},
		athlete:  &user.User{ID: uuid.New(), Username: "runner", Role: user.RoleUser},
		now:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	dir := fakeDirectory{f.trainer.ID: f.trainer.Username, f.athlete.ID: f.athlete.Username}
	f.svc = NewChallengeService(f.store, dir, f.notifier)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *challengeFixture) createRequest() *challenge.CreateChallengeRequest {
	return &challenge.CreateChallengeRequest{
		Title:         "10k steps",
		Description:   "Walk every day",
		ChallengeType: challenge.TypeSteps,
		TargetValue:   10000,
		StartDate:     f.now.Add(time.Hour),
		EndDate:       f.now.Add(8 * 24 * time.Hour),
	}
}

// startedChallenge creates a challenge and moves the clock past its start.
func (f *challengeFixture) startedChallenge(t *testing.T, req *challenge.CreateChallengeRequest) uuid.UUID {
	t.Helper()
	view, err := f.svc.CreateChallenge(context.Background(), f.trainer, req)
	require.NoError(t, err)
	f.now = f.now.Add(2 * time.Hour)
	return view.ID
}

func TestCreateChallengeDefaults(t *testing.T) {
	f := newChallengeFixture(t)

	view, err := f.svc.CreateChallenge(context.Background(), f.trainer, f.createRequest())
	require.NoError(t, err)

	assert.Equal(t, challenge.StatusUpcoming, view.Status)
	assert.Equal(t, 8, view.DurationInDays)
	assert.True(t, view.IsPublic)
	assert.True(t, view.IsActive)
	assert.Equal(t, challenge.DefaultCoverImage, view.CoverImage)
	assert.Equal(t, []uuid.UUID{f.trainer.ID}, view.Participants.UserIDs())
	assert.Equal(t, "coach", view.Creator.Username)
	assert.Empty(t, f.notifier.all())
}

func TestCreateChallengeRejectsPastStart(t *testing.T) {
	f := newChallengeFixture(t)
	req := f.createRequest()
	req.StartDate = f.now.Add(-time.Minute)

	_, err := f.svc.CreateChallenge(context.Background(), f.trainer, req)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateChallengeAssignedUsers(t *testing.T) {
	f := newChallengeFixture(t)
	req := f.createRequest()
	req.AssignedUsers = []uuid.UUID{f.athlete.ID}

	view, err := f.svc.CreateChallenge(context.Background(), f.trainer, req)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.athlete.ID}, view.Participants.UserIDs())

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, f.athlete.ID, sent[0].Recipient)
	assert.Equal(t, notification.TypeChallengeCreated, sent[0].Type)
}

func TestCreateChallengeUnknownAssignedUser(t *testing.T) {
	f := newChallengeFixture(t)
	req := f.createRequest()
	req.AssignedUsers = []uuid.UUID{uuid.New()}

	_, err := f.svc.CreateChallenge(context.Background(), f.trainer, req)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestJoinChallenge(t *testing.T) {
	f := newChallengeFixture(t)
	id := f.startedChallenge(t, f.createRequest())

	view, err := f.svc.JoinChallenge(context.Background(), id, f.athlete)
	require.NoError(t, err)
	require.NotNil(t, view.IsParticipant)
	assert.True(t, *view.IsParticipant)
	assert.Equal(t, 2, view.Participants.Len())

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, f.trainer.ID, sent[0].Recipient)
	assert.Equal(t, f.athlete.ID, sent[0].Sender)
	assert.Equal(t, "New Challenge Participant", sent[0].Title)

	_, err = f.svc.JoinChallenge(context.Background(), id, f.athlete)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Len(t, f.notifier.all(), 1)
}

func TestJoinChallengeNotFound(t *testing.T) {
	f := newChallengeFixture(t)
	_, err := f.svc.JoinChallenge(context.Background(), uuid.New(), f.athlete)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestJoinChallengeFullAndEnded(t *testing.T) {
	f := newChallengeFixture(t)
	req := f.createRequest()
	max := 2
	req.MaxParticipants = &max
	id := f.startedChallenge(t, req)

	_, err := f.svc.JoinChallenge(context.Background(), id, f.athlete)
	require.NoError(t, err)

	_, err = f.svc.JoinChallenge(context.Background(), id, &user.User{ID: uuid.New(), Username: "late"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	open := f.startedChallenge(t, f.createRequest())
	f.now = f.now.Add(30 * 24 * time.Hour)
	_, err = f.svc.JoinChallenge(context.Background(), open, f.athlete)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestJoinChallengeConcurrentRespectsMax(t *testing.T) {
	f := newChallengeFixture(t)
	req := f.createRequest()
	max := 5
	req.MaxParticipants = &max
	id := f.startedChallenge(t, req)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.JoinChallenge(context.Background(), id, &user.User{ID: uuid.New(), Username: "u"})
		}()
	}
	wg.Wait()

	c, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, max, c.Participants.Len())
}

func TestProgressApprovalAndWinner(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	id := f.startedChallenge(t, f.createRequest())

	_, err := f.svc.JoinChallenge(ctx, id, f.athlete)
	require.NoError(t, err)

	p, err := f.svc.UpdateProgress(ctx, id, f.athlete.ID, 3000)
	require.NoError(t, err)
	assert.False(t, p.Completed)

	_, err = f.svc.ApproveParticipant(ctx, id, f.athlete.ID.String(), f.trainer.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	p, err = f.svc.UpdateProgress(ctx, id, f.athlete.ID, 12000)
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.NotNil(t, p.CompletedAt)

	_, err = f.svc.DeclareWinner(ctx, id, f.trainer.ID, &challenge.DeclareWinnerRequest{WinnerUserID: f.athlete.ID})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.ApproveParticipant(ctx, id, f.athlete.ID.String(), f.athlete.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	approval, err := f.svc.ApproveParticipant(ctx, id, f.athlete.ID.String(), f.trainer.ID)
	require.NoError(t, err)
	assert.True(t, approval.Approved)

	won, err := f.svc.DeclareWinner(ctx, id, f.trainer.ID, &challenge.DeclareWinnerRequest{WinnerUserID: f.athlete.ID})
	require.NoError(t, err)
	assert.Equal(t, f.athlete.ID, won.WinnerUserID)
	assert.Equal(t, challenge.DefaultWinnerMessage, won.Message)

	sent := f.notifier.all()
	last := sent[len(sent)-1]
	assert.Equal(t, notification.TypeChallengeWinner, last.Type)
	assert.Equal(t, f.athlete.ID, last.Recipient)
}

func TestUpdateProgressDropsApproval(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	id := f.startedChallenge(t, f.createRequest())
	_, _ = f.svc.JoinChallenge(ctx, id, f.athlete)

	_, err := f.svc.UpdateProgress(ctx, id, f.athlete.ID, 10000)
	require.NoError(t, err)
	_, err = f.svc.ApproveParticipant(ctx, id, f.athlete.ID.String(), f.trainer.ID)
	require.NoError(t, err)

	p, err := f.svc.UpdateProgress(ctx, id, f.athlete.ID, 7000)
	require.NoError(t, err)
	assert.False(t, p.Completed)

	c, err := f.store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, c.Participants.Get(f.athlete.ID).ApprovedByTrainer)
}

func TestUpdateProgressNotParticipant(t *testing.T) {
	f := newChallengeFixture(t)
	id := f.startedChallenge(t, f.createRequest())

	_, err := f.svc.UpdateProgress(context.Background(), id, f.athlete.ID, 10)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestGetLeaderboard(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	id := f.startedChallenge(t, f.createRequest())
	_, _ = f.svc.JoinChallenge(ctx, id, f.athlete)
	_, err := f.svc.UpdateProgress(ctx, id, f.athlete.ID, 15000)
	require.NoError(t, err)

	lb, err := f.svc.GetLeaderboard(ctx, id)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, "runner", lb.Entries[0].User.Username)
	assert.Equal(t, 100, lb.Entries[0].Percentage)
	assert.Equal(t, "coach", lb.Entries[1].User.Username)
	assert.Equal(t, 0, lb.Entries[1].Percentage)
}

func TestListChallengesHidesPrivateFromAnonymous(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	private := f.createRequest()
	no := false
	private.IsPublic = &no
	_, err := f.svc.CreateChallenge(ctx, f.trainer, private)
	require.NoError(t, err)
	_, err = f.svc.CreateChallenge(ctx, f.trainer, f.createRequest())
	require.NoError(t, err)

	anon, err := f.svc.ListChallenges(ctx, challenge.ListFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, anon.Total)
	assert.Equal(t, 1, anon.Page)
	assert.Nil(t, anon.Data[0].IsParticipant)

	signedIn, err := f.svc.ListChallenges(ctx, challenge.ListFilter{Limit: 1}, &f.athlete.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, signedIn.Total)
	assert.Equal(t, 2, signedIn.Pages)
	assert.Equal(t, 1, signedIn.Count)
	require.NotNil(t, signedIn.Data[0].IsParticipant)
	assert.False(t, *signedIn.Data[0].IsParticipant)
}

func TestGetChallengePrivate(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	req := f.createRequest()
	no := false
	req.IsPublic = &no
	view, err := f.svc.CreateChallenge(ctx, f.trainer, req)
	require.NoError(t, err)

	_, err = f.svc.GetChallenge(ctx, view.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.GetChallenge(ctx, view.ID, &f.athlete.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := f.svc.GetChallenge(ctx, view.ID, &f.trainer.ID)
	require.NoError(t, err)
	assert.True(t, *got.IsParticipant)
}

func TestMyChallengesStatusFilter(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	id := f.startedChallenge(t, f.createRequest())
	_, _ = f.svc.JoinChallenge(ctx, id, f.athlete)

	active, err := f.svc.MyChallenges(ctx, f.athlete.ID, challenge.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.NotNil(t, active[0].UserProgress)

	upcoming, err := f.svc.MyChallenges(ctx, f.athlete.ID, challenge.StatusUpcoming)
	require.NoError(t, err)
	assert.Empty(t, upcoming)
}

func TestDeleteChallenge(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	id := f.startedChallenge(t, f.createRequest())

	err := f.svc.DeleteChallenge(ctx, id, f.athlete.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, f.svc.DeleteChallenge(ctx, id, f.trainer.ID))

	_, err = f.svc.GetChallenge(ctx, id, &f.trainer.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
