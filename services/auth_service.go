package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/auth"
	"fitTrackAPI/internal/user"
)

// UserAccounts is the part of the user store the auth flow needs.
type UserAccounts interface {
	CreateUser(ctx context.Context, u *user.User) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
}

type AuthService struct {
	users  UserAccounts
	tokens *auth.TokenIssuer
}

func NewAuthService(users UserAccounts, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, req *user.RegisterRequest) (*user.LoginResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	role := req.Role
	if role == "" {
		role = user.RoleUser
	}

	now := time.Now().UTC()
	u, err := s.users.CreateUser(ctx, &user.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Auth: registered %s user %s", u.Role, u.Username)

	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, req *user.LoginRequest) (*user.LoginResponse, error) {
	u, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("Invalid credentials")
		}
		return nil, err
	}

	if u.PasswordHash == "" {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	return s.issue(u)
}

func (s *AuthService) issue(u *user.User) (*user.LoginResponse, error) {
	token, err := s.tokens.Generate(u.ID, u.Username, string(u.Role))
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	return &user.LoginResponse{
		Token:    token,
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}, nil
}
