package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitTrackAPI/internal/types/challenge"
)

var ErrChallengeNotFound = errors.New("challenge not found")

// ChallengeStore persists challenges as one row each, participants included.
type ChallengeStore interface {
	Create(ctx context.Context, c *challenge.Challenge) error
	Get(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
	List(ctx context.Context, filter challenge.ListFilter, now time.Time) ([]*challenge.Challenge, int, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, status challenge.Status, now time.Time) ([]*challenge.Challenge, error)
	// Mutate loads the challenge under a row lock, applies fn and writes the
	// result back. Nothing is written when fn fails.
	Mutate(ctx context.Context, id uuid.UUID, fn func(c *challenge.Challenge) error) (*challenge.Challenge, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PgChallengeStore struct {
	db *pgxpool.Pool
}

func NewPgChallengeStore(db *pgxpool.Pool) *PgChallengeStore {
	return &PgChallengeStore{db: db}
}

const challengeColumns = `
	id, title, description, challenge_type, target_value, start_date, end_date,
	created_by, is_active, is_public, max_participants, cover_image, rewards, tags,
	participants, winner_user, winner_message, winner_announced_at, created_at, updated_at`

// statusCondition mirrors Challenge.StatusAt with the reference time in
// placeholder now and the wanted status in placeholder status.
func statusCondition(now, status int) string {
	return fmt.Sprintf(`(CASE
		WHEN start_date > $%[1]d THEN 'upcoming'
		WHEN end_date < $%[1]d OR NOT is_active THEN 'completed'
		ELSE 'active'
	END) = $%[2]d`, now, status)
}

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.ChallengeType,
		&c.TargetValue,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedBy,
		&c.IsActive,
		&c.IsPublic,
		&c.MaxParticipants,
		&c.CoverImage,
		&c.Rewards,
		&c.Tags,
		&c.Participants,
		&c.WinnerUser,
		&c.WinnerMessage,
		&c.WinnerAnnouncedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.Participants == nil {
		c.Participants = challenge.NewParticipants()
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return c, nil
}

func (s *PgChallengeStore) Create(ctx context.Context, c *challenge.Challenge) error {
	query := `
	INSERT INTO challenges (
		id, title, description, challenge_type, target_value, start_date, end_date,
		created_by, is_active, is_public, max_participants, cover_image, rewards, tags,
		participants, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := s.db.Exec(ctx, query,
		c.ID,
		c.Title,
		c.Description,
		c.ChallengeType,
		c.TargetValue,
		c.StartDate,
		c.EndDate,
		c.CreatedBy,
		c.IsActive,
		c.IsPublic,
		c.MaxParticipants,
		c.CoverImage,
		c.Rewards,
		c.Tags,
		c.Participants,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert challenge: %w", err)
	}
	return nil
}

func (s *PgChallengeStore) Get(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	c, err := scanChallenge(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

func (s *PgChallengeStore) List(ctx context.Context, filter challenge.ListFilter, now time.Time) ([]*challenge.Challenge, int, error) {
	args := []any{}
	conditions := []string{}

	if filter.PublicOnly {
		conditions = append(conditions, "is_public = TRUE")
	}
	if filter.Status != "" {
		args = append(args, now, string(filter.Status))
		conditions = append(conditions, statusCondition(len(args)-1, len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conditions = append(conditions, fmt.Sprintf("challenge_type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE '%%' || $%[1]d::text || '%%' OR description ILIKE '%%' || $%[1]d::text || '%%')", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM challenges %s`, whereClause)
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count challenges: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset())
	query := fmt.Sprintf(`
	SELECT %s
	FROM challenges
	%s
	ORDER BY created_at DESC
	LIMIT $%d OFFSET $%d
	`, challengeColumns, whereClause, len(args)-1, len(args))

	challenges, err := s.queryChallenges(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, total, nil
}

func (s *PgChallengeStore) ListByParticipant(ctx context.Context, userID uuid.UUID, status challenge.Status, now time.Time) ([]*challenge.Challenge, error) {
	member, err := json.Marshal([]map[string]string{{"userId": userID.String()}})
	if err != nil {
		return nil, err
	}

	args := []any{string(member)}
	whereClause := "WHERE participants @> $1::jsonb"
	if status != "" {
		args = append(args, now, string(status))
		whereClause += " AND " + statusCondition(2, 3)
	}

	query := fmt.Sprintf(`
	SELECT %s
	FROM challenges
	%s
	ORDER BY start_date ASC
	`, challengeColumns, whereClause)

	challenges, err := s.queryChallenges(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user challenges: %w", err)
	}
	return challenges, nil
}

func (s *PgChallengeStore) queryChallenges(ctx context.Context, query string, args ...any) ([]*challenge.Challenge, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	challenges := []*challenge.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (s *PgChallengeStore) Mutate(ctx context.Context, id uuid.UUID, fn func(c *challenge.Challenge) error) (*challenge.Challenge, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1 FOR UPDATE`
	c, err := scanChallenge(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock challenge: %w", err)
	}

	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()

	update := `
	UPDATE challenges
	SET participants = $2, winner_user = $3, winner_message = $4,
		winner_announced_at = $5, is_active = $6, updated_at = $7
	WHERE id = $1
	`
	_, err = tx.Exec(ctx, update,
		c.ID,
		c.Participants,
		c.WinnerUser,
		c.WinnerMessage,
		c.WinnerAnnouncedAt,
		c.IsActive,
		c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update challenge: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit challenge update: %w", err)
	}
	return c, nil
}

func (s *PgChallengeStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChallengeNotFound
	}
	return nil
}
