package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitTrackAPI/internal/notification"
)

type fakeSink struct {
	mu      sync.Mutex
	saved   []*notification.Notification
	tokens  map[uuid.UUID][]notification.DeviceToken
	saveErr error
	block   chan struct{}
}

func (s *fakeSink) SaveNotification(ctx context.Context, n *notification.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, n)
	return nil
}

func (s *fakeSink) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[userID], nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type recordingPush struct {
	mu    sync.Mutex
	calls []map[string]string
}

func (p *recordingPush) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, data)
	return nil
}

func joinedRequest(recipient uuid.UUID) *notification.CreateNotificationRequest {
	challengeID := uuid.New()
	return &notification.CreateNotificationRequest{
		Recipient:   recipient,
		Sender:      uuid.New(),
		Type:        notification.TypeChallengeJoined,
		Title:       "New Challenge Participant",
		Message:     "someone joined",
		ChallengeID: &challengeID,
	}
}

func TestDispatcherStoresAndPushes(t *testing.T) {
	recipient := uuid.New()
	sink := &fakeSink{tokens: map[uuid.UUID][]notification.DeviceToken{
		recipient: {{Token: "device-1", Platform: "android"}},
	}}
	push := &recordingPush{}

	d := NewNotificationDispatcher(sink, 2, 10)
	d.SetPushProvider(push)
	req := joinedRequest(recipient)
	d.Notify(req)
	d.Stop()

	require.Equal(t, 1, sink.count())
	saved := sink.saved[0]
	assert.Equal(t, recipient, saved.Recipient)
	assert.False(t, saved.IsRead)

	require.Len(t, push.calls, 1)
	assert.Equal(t, saved.ID.String(), push.calls[0]["notification_id"])
	assert.Equal(t, "challenge_joined", push.calls[0]["type"])
	assert.Equal(t, req.ChallengeID.String(), push.calls[0]["challenge_id"])
}

func TestDispatcherSkipsPushWithoutTokens(t *testing.T) {
	sink := &fakeSink{}
	push := &recordingPush{}

	d := NewNotificationDispatcher(sink, 1, 10)
	d.SetPushProvider(push)
	d.Notify(joinedRequest(uuid.New()))
	d.Stop()

	assert.Equal(t, 1, sink.count())
	assert.Empty(t, push.calls)
}

func TestDispatcherSaveFailureIsSwallowed(t *testing.T) {
	sink := &fakeSink{saveErr: errors.New("db down")}
	d := NewNotificationDispatcher(sink, 1, 10)

	assert.NotPanics(t, func() {
		d.Notify(joinedRequest(uuid.New()))
		d.Stop()
	})
	assert.Equal(t, 0, sink.count())
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	sink := &fakeSink{block: make(chan struct{})}
	d := NewNotificationDispatcher(sink, 1, 1)

	// One job is held by the worker, one fills the queue, the rest are dropped.
	for i := 0; i < 5; i++ {
		d.Notify(joinedRequest(uuid.New()))
		time.Sleep(10 * time.Millisecond)
	}
	close(sink.block)
	d.Stop()

	assert.Equal(t, 2, sink.count())
}

func TestDispatcherStopDrainsAndRejects(t *testing.T) {
	sink := &fakeSink{}
	d := NewNotificationDispatcher(sink, 3, 100)
	for i := 0; i < 50; i++ {
		d.Notify(joinedRequest(uuid.New()))
	}
	d.Stop()
	assert.Equal(t, 50, sink.count())

	d.Notify(joinedRequest(uuid.New()))
	d.Stop()
	assert.Equal(t, 50, sink.count())
}

func TestDispatcherIgnoresNil(t *testing.T) {
	sink := &fakeSink{}
	d := NewNotificationDispatcher(sink, 1, 1)
	d.Notify(nil)
	d.Stop()
	assert.Equal(t, 0, sink.count())
}
