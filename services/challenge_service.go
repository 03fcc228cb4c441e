package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/leaderboard"
	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/types/challenge"
	"fitTrackAPI/internal/user"
	"fitTrackAPI/utils"
)

const (
	DefaultChallengePageSize = 10
	MaxChallengePageSize     = 100
)

// UserDirectory resolves user ids to display names.
type UserDirectory interface {
	Usernames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type ChallengeService struct {
	store    ChallengeStore
	users    UserDirectory
	notifier Notifier
	now      func() time.Time
}

func NewChallengeService(store ChallengeStore, users UserDirectory, notifier Notifier) *ChallengeService {
	return &ChallengeService{
		store:    store,
		users:    users,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// domainErrors maps challenge rule violations to API errors.
var domainErrors = map[error]func(string) error{
	challenge.ErrChallengeEnded:       apperr.Conflict,
	challenge.ErrAlreadyJoined:        apperr.Conflict,
	challenge.ErrChallengeFull:        apperr.Conflict,
	challenge.ErrNotCompleted:         apperr.Conflict,
	challenge.ErrWinnerNotParticipant: apperr.Conflict,
	challenge.ErrWinnerNotApproved:    apperr.Conflict,
	challenge.ErrNotParticipant:       apperr.Forbidden,
	challenge.ErrNotCreator:           apperr.Forbidden,
	challenge.ErrParticipantNotFound:  apperr.NotFound,
}

func mapChallengeError(err error, op string) error {
	if errors.Is(err, ErrChallengeNotFound) {
		return apperr.NotFound("Challenge not found")
	}
	for domainErr, kind := range domainErrors {
		if errors.Is(err, domainErr) {
			return kind(capitalize(domainErr.Error()))
		}
	}
	return apperr.Internal("failed to "+op, err)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, creator *user.User, req *challenge.CreateChallengeRequest) (*challenge.ChallengeView, error) {
	now := s.now()
	if !req.StartDate.After(now) {
		return nil, apperr.Validation("Invalid challenge dates", apperr.FieldError{
			Field:   "startDate",
			Message: "Start date must be in the future",
		})
	}

	c := &challenge.Challenge{
		ID:              uuid.New(),
		Title:           req.Title,
		Description:     req.Description,
		ChallengeType:   req.ChallengeType,
		TargetValue:     req.TargetValue,
		StartDate:       req.StartDate.UTC(),
		EndDate:         req.EndDate.UTC(),
		CreatedBy:       creator.ID,
		IsActive:        true,
		IsPublic:        true,
		MaxParticipants: req.MaxParticipants,
		CoverImage:      req.CoverImage,
		Tags:            req.Tags,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.IsPublic != nil {
		c.IsPublic = *req.IsPublic
	}
	if c.CoverImage == "" {
		c.CoverImage = challenge.DefaultCoverImage
	}
	if req.Rewards != nil {
		c.Rewards = *req.Rewards
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	members := []uuid.UUID{creator.ID}
	if len(req.AssignedUsers) > 0 {
		names, err := s.users.Usernames(ctx, req.AssignedUsers)
		if err != nil {
			return nil, apperr.Internal("failed to resolve assigned users", err)
		}
		for _, id := range req.AssignedUsers {
			if _, ok := names[id]; !ok {
				return nil, apperr.Validation("Unknown assigned user", apperr.FieldError{
					Field:   "assignedUsers",
					Message: "User " + id.String() + " does not exist",
				})
			}
		}
		members = req.AssignedUsers
	}

	c.Participants = challenge.NewParticipants()
	for _, id := range members {
		c.Participants.Add(id, now)
	}
	if c.MaxParticipants != nil && c.Participants.Len() > *c.MaxParticipants {
		return nil, apperr.Validation("Too many assigned users", apperr.FieldError{
			Field:   "assignedUsers",
			Message: "Assigned users exceed maxParticipants",
		})
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, apperr.Internal("failed to create challenge", err)
	}
	metrics.ChallengeEvents.WithLabelValues("created").Inc()

	if len(req.AssignedUsers) > 0 {
		for _, n := range utils.ChallengeAssigned(c, req.AssignedUsers) {
			s.notifier.Notify(n)
		}
	}

	view := challenge.NewView(c, now)
	view.Creator = &challenge.CreatorInfo{ID: creator.ID, Username: creator.Username, Name: creator.Name}
	return view, nil
}

// ListChallenges pages through challenges matching filter. A nil caller sees
// public challenges only.
func (s *ChallengeService) ListChallenges(ctx context.Context, filter challenge.ListFilter, caller *uuid.UUID) (*challenge.ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultChallengePageSize
	}
	if filter.Limit > MaxChallengePageSize {
		filter.Limit = MaxChallengePageSize
	}
	filter.PublicOnly = caller == nil

	now := s.now()
	challenges, total, err := s.store.List(ctx, filter, now)
	if err != nil {
		return nil, apperr.Internal("failed to list challenges", err)
	}

	views, err := s.views(ctx, challenges, now, caller)
	if err != nil {
		return nil, err
	}

	pages := (total + filter.Limit - 1) / filter.Limit
	return &challenge.ListResponse{
		Count: len(views),
		Total: total,
		Page:  filter.Page,
		Pages: pages,
		Data:  views,
	}, nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, id uuid.UUID, caller *uuid.UUID) (*challenge.ChallengeView, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapChallengeError(err, "get challenge")
	}
	if !c.IsPublic && (caller == nil || !c.Participants.Has(*caller) && !c.IsCreator(*caller)) {
		return nil, apperr.NotFound("Challenge not found")
	}

	views, err := s.views(ctx, []*challenge.Challenge{c}, s.now(), caller)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// MyChallenges lists challenges userID participates in, optionally narrowed
// to one status.
func (s *ChallengeService) MyChallenges(ctx context.Context, userID uuid.UUID, status challenge.Status) ([]*challenge.ChallengeView, error) {
	now := s.now()
	challenges, err := s.store.ListByParticipant(ctx, userID, status, now)
	if err != nil {
		return nil, apperr.Internal("failed to list user challenges", err)
	}
	return s.views(ctx, challenges, now, &userID)
}

func (s *ChallengeService) views(ctx context.Context, challenges []*challenge.Challenge, now time.Time, caller *uuid.UUID) ([]*challenge.ChallengeView, error) {
	creatorIDs := make([]uuid.UUID, 0, len(challenges))
	for _, c := range challenges {
		creatorIDs = append(creatorIDs, c.CreatedBy)
	}
	names := map[uuid.UUID]string{}
	if len(creatorIDs) > 0 {
		var err error
		names, err = s.users.Usernames(ctx, creatorIDs)
		if err != nil {
			return nil, apperr.Internal("failed to resolve challenge creators", err)
		}
	}

	views := make([]*challenge.ChallengeView, 0, len(challenges))
	for _, c := range challenges {
		view := challenge.NewView(c, now)
		view.Creator = &challenge.CreatorInfo{ID: c.CreatedBy, Username: names[c.CreatedBy]}
		if caller != nil {
			view.WithCaller(*caller)
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *ChallengeService) JoinChallenge(ctx context.Context, id uuid.UUID, actor *user.User) (*challenge.ChallengeView, error) {
	now := s.now()
	c, err := s.store.Mutate(ctx, id, func(c *challenge.Challenge) error {
		_, err := c.Join(actor.ID, now)
		return err
	})
	if err != nil {
		return nil, mapChallengeError(err, "join challenge")
	}
	metrics.ChallengeEvents.WithLabelValues("joined").Inc()

	if c.CreatedBy != actor.ID {
		s.notifier.Notify(utils.ParticipantJoined(c, actor.ID, actor.Username))
	}

	return challenge.NewView(c, now).WithCaller(actor.ID), nil
}

func (s *ChallengeService) UpdateProgress(ctx context.Context, id, userID uuid.UUID, progress float64) (*challenge.ProgressView, error) {
	now := s.now()
	var view *challenge.ProgressView
	var completedNow bool
	_, err := s.store.Mutate(ctx, id, func(c *challenge.Challenge) error {
		before := c.Participants.Get(userID)
		wasCompleted := before != nil && before.Completed
		p, err := c.UpdateProgress(userID, progress, now)
		if err != nil {
			return err
		}
		completedNow = p.Completed && !wasCompleted
		view = p.View()
		return nil
	})
	if err != nil {
		return nil, mapChallengeError(err, "update progress")
	}

	metrics.ChallengeEvents.WithLabelValues("progress").Inc()
	if completedNow {
		metrics.ChallengeEvents.WithLabelValues("completed").Inc()
	}
	return view, nil
}

func (s *ChallengeService) ApproveParticipant(ctx context.Context, id uuid.UUID, participantID string, trainerID uuid.UUID) (*challenge.ApprovalResponse, error) {
	now := s.now()
	var approvedID uuid.UUID
	_, err := s.store.Mutate(ctx, id, func(c *challenge.Challenge) error {
		p, err := c.Approve(participantID, trainerID, now)
		if err != nil {
			return err
		}
		approvedID = p.ID
		return nil
	})
	if err != nil {
		return nil, mapChallengeError(err, "approve participant")
	}
	metrics.ChallengeEvents.WithLabelValues("approved").Inc()

	return &challenge.ApprovalResponse{ParticipantID: approvedID.String(), Approved: true}, nil
}

func (s *ChallengeService) DeclareWinner(ctx context.Context, id, trainerID uuid.UUID, req *challenge.DeclareWinnerRequest) (*challenge.WinnerResponse, error) {
	now := s.now()
	c, err := s.store.Mutate(ctx, id, func(c *challenge.Challenge) error {
		return c.DeclareWinner(req.WinnerUserID, trainerID, req.Message, now)
	})
	if err != nil {
		return nil, mapChallengeError(err, "declare winner")
	}
	metrics.ChallengeEvents.WithLabelValues("winner").Inc()

	s.notifier.Notify(utils.WinnerDeclared(c, trainerID, req.WinnerUserID, *c.WinnerMessage))

	return &challenge.WinnerResponse{WinnerUserID: *c.WinnerUser, Message: *c.WinnerMessage}, nil
}

func (s *ChallengeService) GetLeaderboard(ctx context.Context, id uuid.UUID) (*leaderboard.Leaderboard, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapChallengeError(err, "get leaderboard")
	}

	names := map[uuid.UUID]string{}
	if ids := c.Participants.UserIDs(); len(ids) > 0 {
		names, err = s.users.Usernames(ctx, ids)
		if err != nil {
			// Leaderboard stays usable without names.
			log.Printf("Leaderboard: failed to resolve usernames for challenge %s: %v", id, err)
			names = map[uuid.UUID]string{}
		}
	}

	return leaderboard.ForChallenge(c, names), nil
}

func (s *ChallengeService) DeleteChallenge(ctx context.Context, id, userID uuid.UUID) error {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return mapChallengeError(err, "delete challenge")
	}
	if !c.IsCreator(userID) {
		return apperr.Forbidden("Only the creator can delete this challenge")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return mapChallengeError(err, "delete challenge")
	}
	metrics.ChallengeEvents.WithLabelValues("deleted").Inc()
	return nil
}
