package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/notification"
	"fitTrackAPI/internal/types/challenge"
	"fitTrackAPI/internal/user"
)

// memChallengeStore keeps challenges as JSON so every read returns a copy,
// the same way rows come back from Postgres.
type memChallengeStore struct {
	mu    sync.Mutex
	rows  map[uuid.UUID][]byte
	order []uuid.UUID
}

func newMemChallengeStore() *memChallengeStore {
	return &memChallengeStore{rows: map[uuid.UUID][]byte{}}
}

func (m *memChallengeStore) put(c *challenge.Challenge) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if _, ok := m.rows[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.rows[c.ID] = data
	return nil
}

func (m *memChallengeStore) load(id uuid.UUID) (*challenge.Challenge, error) {
	data, ok := m.rows[id]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	c := &challenge.Challenge{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if c.Participants == nil {
		c.Participants = challenge.NewParticipants()
	}
	return c, nil
}

func (m *memChallengeStore) Create(ctx context.Context, c *challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(c)
}

func (m *memChallengeStore) Get(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id)
}

func (m *memChallengeStore) List(ctx context.Context, filter challenge.ListFilter, now time.Time) ([]*challenge.Challenge, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*challenge.Challenge
	for i := len(m.order) - 1; i >= 0; i-- {
		c, err := m.load(m.order[i])
		if err != nil {
			return nil, 0, err
		}
		if filter.PublicOnly && !c.IsPublic {
			continue
		}
		if filter.Status != "" && c.StatusAt(now) != filter.Status {
			continue
		}
		if filter.Type != "" && c.ChallengeType != filter.Type {
			continue
		}
		matched = append(matched, c)
	}

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func (m *memChallengeStore) ListByParticipant(ctx context.Context, userID uuid.UUID, status challenge.Status, now time.Time) ([]*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*challenge.Challenge
	for _, id := range m.order {
		c, err := m.load(id)
		if err != nil {
			return nil, err
		}
		if !c.Participants.Has(userID) {
			continue
		}
		if status != "" && c.StatusAt(now) != status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memChallengeStore) Mutate(ctx context.Context, id uuid.UUID, fn func(c *challenge.Challenge) error) (*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.load(id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := m.put(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *memChallengeStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrChallengeNotFound
	}
	delete(m.rows, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

type fakeDirectory map[uuid.UUID]string

func (d fakeDirectory) Usernames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if name, ok := d[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*notification.CreateNotificationRequest
}

func (r *recordingNotifier) Notify(req *notification.CreateNotificationRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, req)
}

func (r *recordingNotifier) all() []*notification.CreateNotificationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.CreateNotificationRequest, len(r.sent))
	copy(out, r.sent)
	return out
}

type memAccounts struct {
	mu     sync.Mutex
	byName map[string]*user.User
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byName: map[string]*user.User{}}
}

func (m *memAccounts) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byName[u.Username]; taken {
		return nil, apperr.Conflict("User already exists")
	}
	m.byName[u.Username] = u
	return u, nil
}

func (m *memAccounts) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byName[username]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}
