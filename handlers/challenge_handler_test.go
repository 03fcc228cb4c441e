package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitTrackAPI/internal/notification"
	"fitTrackAPI/internal/types/challenge"
	"fitTrackAPI/internal/user"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*challenge.Challenge
}

func (m *memStore) Create(ctx context.Context, c *challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = c
	return nil
}

func (m *memStore) Get(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, services.ErrChallengeNotFound
	}
	return c, nil
}

func (m *memStore) List(ctx context.Context, filter challenge.ListFilter, now time.Time) ([]*challenge.Challenge, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*challenge.Challenge
	for _, c := range m.rows {
		if filter.PublicOnly && !c.IsPublic {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memStore) ListByParticipant(ctx context.Context, userID uuid.UUID, status challenge.Status, now time.Time) ([]*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*challenge.Challenge
	for _, c := range m.rows {
		if c.Participants.Has(userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) Mutate(ctx context.Context, id uuid.UUID, fn func(c *challenge.Challenge) error) (*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, services.ErrChallengeNotFound
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type nameDirectory map[uuid.UUID]string

func (d nameDirectory) Usernames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if n, ok := d[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type discardNotifier struct{}

func (discardNotifier) Notify(*notification.CreateNotificationRequest) {}

type testAPI struct {
	router  *mux.Router
	store   *memStore
	trainer *user.User
	athlete *user.User
}

// asUser stands in for the auth middleware, reading the caller from a header.
func (api *testAPI) asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("X-Test-User") {
		case "trainer":
			r = r.WithContext(middleware.WithUser(r.Context(), api.trainer))
		case "athlete":
			r = r.WithContext(middleware.WithUser(r.Context(), api.athlete))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{
		store:   &memStore{rows: map[uuid.UUID]*challenge.Challenge{}},
		trainer: &user.User{ID: uuid.New(), Username: "coach", Role: user.RoleTrainer},
		athlete: &user.User{ID: uuid.New(), Username: "runner", Role: user.RoleUser},
	}
	dir := nameDirectory{api.trainer.ID: "coach", api.athlete.ID: "runner"}
	h := NewChallengeHandler(services.NewChallengeService(api.store, dir, discardNotifier{}))

	r := mux.NewRouter()
	r.Use(api.asUser)
	r.Handle("/api/challenges", middleware.RequireTrainer(http.HandlerFunc(h.CreateChallenge))).Methods("POST")
	r.HandleFunc("/api/challenges", h.ListChallenges).Methods("GET")
	r.HandleFunc("/api/challenges/user/me", h.GetMyChallenges).Methods("GET")
	r.HandleFunc("/api/challenges/leaderboard/{id}", h.GetLeaderboard).Methods("GET")
	r.HandleFunc("/api/challenges/{id}/join", h.JoinChallenge).Methods("POST")
	r.HandleFunc("/api/challenges/{id}/progress", h.UpdateProgress).Methods("PUT")
	r.HandleFunc("/api/challenges/{id}/approve/{participantId}", h.ApproveParticipant).Methods("PUT")
	r.HandleFunc("/api/challenges/{id}/winner", h.DeclareWinner).Methods("POST")
	r.HandleFunc("/api/challenges/{id}", h.GetChallenge).Methods("GET")
	r.HandleFunc("/api/challenges/{id}", h.DeleteChallenge).Methods("DELETE")
	api.router = r
	return api
}

func (api *testAPI) do(t *testing.T, method, path, as string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("X-Test-User", as)
	}
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func validCreateBody() map[string]any {
	start := time.Now().Add(time.Hour)
	return map[string]any{
		"title":         "Spring steps",
		"description":   "10k a day",
		"challengeType": "steps",
		"targetValue":   10000,
		"startDate":     start.Format(time.RFC3339),
		"endDate":       start.Add(7 * 24 * time.Hour).Format(time.RFC3339),
	}
}

// seedActive stores a running challenge created by the trainer.
func (api *testAPI) seedActive() *challenge.Challenge {
	now := time.Now().UTC()
	c := &challenge.Challenge{
		ID:            uuid.New(),
		Title:         "Active steps",
		ChallengeType: challenge.TypeSteps,
		TargetValue:   10000,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(48 * time.Hour),
		CreatedBy:     api.trainer.ID,
		IsActive:      true,
		IsPublic:      true,
		Participants:  challenge.NewParticipants(),
	}
	c.Participants.Add(api.trainer.ID, now)
	api.store.rows[c.ID] = c
	return c
}

func TestCreateChallengeEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec, body := api.do(t, "POST", "/api/challenges", "trainer", validCreateBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Challenge created successfully", body["message"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "upcoming", data["status"])
	assert.Equal(t, float64(7), data["durationInDays"])
	assert.Len(t, data["participants"], 1)
}

func TestCreateChallengeRequiresTrainer(t *testing.T) {
	api := newTestAPI(t)

	rec, body := api.do(t, "POST", "/api/challenges", "athlete", validCreateBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestCreateChallengeValidation(t *testing.T) {
	api := newTestAPI(t)

	reqBody := validCreateBody()
	reqBody["challengeType"] = "swimming"
	reqBody["endDate"] = time.Now().Format(time.RFC3339)
	delete(reqBody, "title")

	rec, body := api.do(t, "POST", "/api/challenges", "trainer", reqBody)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", body["error"])

	fields := map[string]string{}
	for _, raw := range body["errors"].([]any) {
		fe := raw.(map[string]any)
		fields[fe["field"].(string)] = fe["message"].(string)
	}
	assert.Equal(t, "title is required", fields["title"])
	assert.Contains(t, fields["challengeType"], "must be one of")
	assert.Equal(t, "endDate must be after startDate", fields["endDate"])
}

func TestCreateChallengeMalformedBody(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest("POST", "/api/challenges", bytes.NewBufferString("{"))
	req.Header.Set("X-Test-User", "trainer")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinAndProgressEndpoints(t *testing.T) {
	api := newTestAPI(t)
	c := api.seedActive()
	base := "/api/challenges/" + c.ID.String()

	rec, body := api.do(t, "POST", base+"/join", "athlete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Successfully joined the challenge", body["message"])

	rec, body = api.do(t, "POST", base+"/join", "athlete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "You have already joined this challenge", body["error"])

	rec, body = api.do(t, "PUT", base+"/progress", "athlete", map[string]any{"progress": 12000})
	require.Equal(t, http.StatusOK, rec.Code)
	progress := body["data"].(map[string]any)
	assert.Equal(t, true, progress["completed"])

	rec, _ = api.do(t, "PUT", base+"/progress", "athlete", map[string]any{"progress": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, "PUT", base+"/progress", "athlete", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = api.do(t, "GET", "/api/challenges/leaderboard/"+c.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := body["data"].(map[string]any)["leaderboard"].([]any)
	require.Len(t, entries, 2)
	first := entries[0].(map[string]any)
	assert.Equal(t, float64(100), first["percentage"])
	assert.Equal(t, "runner", first["user"].(map[string]any)["username"])
}

func TestApproveAndWinnerEndpoints(t *testing.T) {
	api := newTestAPI(t)
	c := api.seedActive()
	base := "/api/challenges/" + c.ID.String()

	api.do(t, "POST", base+"/join", "athlete", nil)
	rec, body := api.do(t, "PUT", base+"/approve/"+api.athlete.ID.String(), "trainer", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Participant has not completed target", body["error"])

	api.do(t, "PUT", base+"/progress", "athlete", map[string]any{"progress": 10000})

	rec, _ = api.do(t, "PUT", base+"/approve/"+api.athlete.ID.String(), "athlete", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = api.do(t, "PUT", base+"/approve/"+api.athlete.ID.String(), "trainer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["data"].(map[string]any)["approved"])

	rec, _ = api.do(t, "POST", base+"/winner", "trainer", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = api.do(t, "POST", base+"/winner", "trainer", map[string]any{"winnerUserId": api.athlete.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, challenge.DefaultWinnerMessage, body["data"].(map[string]any)["message"])
}

func TestGetChallengeEndpoint(t *testing.T) {
	api := newTestAPI(t)
	c := api.seedActive()

	rec, body := api.do(t, "GET", "/api/challenges/"+c.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "active", data["status"])
	assert.NotContains(t, data, "isParticipant")

	rec, body = api.do(t, "GET", "/api/challenges/"+c.ID.String(), "athlete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["data"].(map[string]any)["isParticipant"])

	rec, _ = api.do(t, "GET", "/api/challenges/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = api.do(t, "GET", "/api/challenges/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Challenge not found", body["error"])
}

func TestListAndMyChallengesEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.seedActive()
	private := api.seedActive()
	private.IsPublic = false

	rec, body := api.do(t, "GET", "/api/challenges", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(1), body["page"])

	rec, _ = api.do(t, "GET", "/api/challenges?status=archived", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = api.do(t, "GET", "/api/challenges/user/me", "trainer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])

	rec, body = api.do(t, "GET", "/api/challenges/user/me", "athlete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []any{}, body["data"])

	rec, _ = api.do(t, "GET", "/api/challenges/user/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteChallengeEndpoint(t *testing.T) {
	api := newTestAPI(t)
	c := api.seedActive()

	rec, _ := api.do(t, "DELETE", "/api/challenges/"+c.ID.String(), "athlete", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = api.do(t, "DELETE", "/api/challenges/"+c.ID.String(), "trainer", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, api.store.rows)
}
