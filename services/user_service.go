package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/user"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `
	id, username, password_hash, name, email, avatar_url, role, age, weight, gender,
	clerk_id, created_at, updated_at`

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Name,
		&u.Email,
		&u.AvatarURL,
		&u.Role,
		&u.Age,
		&u.Weight,
		&u.Gender,
		&u.ClerkID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *UserService) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	query := `
	INSERT INTO users (id, username, password_hash, name, role, clerk_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + userColumns

	created, err := scanUser(s.db.QueryRow(ctx, query,
		u.ID,
		u.Username,
		u.PasswordHash,
		u.Name,
		u.Role,
		u.ClerkID,
		u.CreatedAt,
		u.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal("failed to create user", err)
	}
	return created, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to get user", err)
	}
	return u, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to get user", err)
	}
	return u, nil
}

// GetOrCreateClerkUser returns the local user linked to clerkID, creating a
// plain user account the first time the identity is seen.
func (s *UserService) GetOrCreateClerkUser(ctx context.Context, clerkID string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = $1`, clerkID))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, apperr.Internal("failed to get user", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	u = &user.User{
		ID:        id,
		Username:  "clerk_" + id.String()[:8],
		Role:      user.RoleUser,
		ClerkID:   &clerkID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}
	log.Printf("Auth: provisioned user %s for clerk identity %s", created.ID, clerkID)
	return created, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*user.Summary, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, username, name, email, avatar_url
	FROM users
	ORDER BY username
	`)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	defer rows.Close()

	users := []*user.Summary{}
	for rows.Next() {
		u := &user.Summary{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.AvatarURL); err != nil {
			return nil, apperr.Internal("failed to scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return users, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET
		name = COALESCE($2, name),
		email = COALESCE($3, email),
		age = COALESCE($4, age),
		weight = COALESCE($5, weight),
		gender = COALESCE($6, gender),
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query, id, req.Name, req.Email, req.Age, req.Weight, req.Gender))
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("Email is already in use")
		}
		return nil, apperr.Internal("failed to update profile", err)
	}
	return u, nil
}

// Usernames maps each existing id in ids to its username. Unknown ids are
// absent from the result.
func (s *UserService) Usernames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := s.db.Query(ctx, `SELECT id, username FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve usernames: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		names[id] = username
	}
	return names, rows.Err()
}
