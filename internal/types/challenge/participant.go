package challenge

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"userId"`
	Progress          float64    `json:"progress"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	ApprovedByTrainer bool       `json:"approvedByTrainer"`
	ApprovedAt        *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy        *uuid.UUID `json:"approvedBy,omitempty"`
	JoinedAt          time.Time  `json:"joinedAt"`
	LastUpdated       time.Time  `json:"lastUpdated"`
}

// ApplyProgress assigns progress and re-evaluates completion. Entering or
// leaving completion always drops any earlier trainer approval.
func (p *Participant) ApplyProgress(progress, target float64, now time.Time) {
	p.Progress = progress
	p.LastUpdated = now

	reached := progress >= target
	switch {
	case reached && !p.Completed:
		p.Completed = true
		p.CompletedAt = &now
		p.clearApproval()
	case !reached && p.Completed:
		p.Completed = false
		p.CompletedAt = nil
		p.clearApproval()
	}
}

func (p *Participant) clearApproval() {
	p.ApprovedByTrainer = false
	p.ApprovedAt = nil
	p.ApprovedBy = nil
}

func (p *Participant) approve(by uuid.UUID, now time.Time) {
	p.ApprovedByTrainer = true
	p.ApprovedAt = &now
	p.ApprovedBy = &by
}

// ProgressView is the caller's own standing in a challenge.
type ProgressView struct {
	Progress    float64    `json:"progress"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

func (p *Participant) View() *ProgressView {
	return &ProgressView{
		Progress:    p.Progress,
		Completed:   p.Completed,
		CompletedAt: p.CompletedAt,
		LastUpdated: p.LastUpdated,
	}
}

// Participants is an insertion-ordered set of participant records keyed by
// user id. It serializes as a JSON array in join order.
type Participants struct {
	order  []*Participant
	byUser map[uuid.UUID]*Participant
	byID   map[uuid.UUID]*Participant
}

func NewParticipants(records ...*Participant) *Participants {
	ps := &Participants{
		byUser: make(map[uuid.UUID]*Participant, len(records)),
		byID:   make(map[uuid.UUID]*Participant, len(records)),
	}
	for _, r := range records {
		ps.insert(r)
	}
	return ps
}

// insert keeps the first record seen for a user.
func (ps *Participants) insert(p *Participant) {
	if _, dup := ps.byUser[p.UserID]; dup {
		return
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	ps.order = append(ps.order, p)
	ps.byUser[p.UserID] = p
	ps.byID[p.ID] = p
}

func (ps *Participants) Add(userID uuid.UUID, now time.Time) *Participant {
	if existing, ok := ps.byUser[userID]; ok {
		return existing
	}
	p := &Participant{
		ID:          uuid.New(),
		UserID:      userID,
		JoinedAt:    now,
		LastUpdated: now,
	}
	ps.insert(p)
	return p
}

func (ps *Participants) Get(userID uuid.UUID) *Participant {
	if ps == nil {
		return nil
	}
	return ps.byUser[userID]
}

func (ps *Participants) Has(userID uuid.UUID) bool {
	return ps.Get(userID) != nil
}

// Lookup resolves a participant by record id or by user id.
func (ps *Participants) Lookup(id string) *Participant {
	if ps == nil {
		return nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	if p, ok := ps.byID[parsed]; ok {
		return p
	}
	return ps.byUser[parsed]
}

func (ps *Participants) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.order)
}

// All returns the records in join order. The slice is a copy; the records
// are shared.
func (ps *Participants) All() []*Participant {
	if ps == nil {
		return nil
	}
	out := make([]*Participant, len(ps.order))
	copy(out, ps.order)
	return out
}

func (ps *Participants) UserIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, ps.Len())
	for _, p := range ps.All() {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (ps *Participants) MarshalJSON() ([]byte, error) {
	if ps == nil || len(ps.order) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(ps.order)
}

func (ps *Participants) UnmarshalJSON(data []byte) error {
	var records []*Participant
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	*ps = *NewParticipants(records...)
	return nil
}
