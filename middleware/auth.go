package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/google/uuid"

	"fitTrackAPI/internal/auth"
	"fitTrackAPI/internal/user"
)

type contextKey string

const UserKey contextKey = "user"

var ErrNoToken = errors.New("no token provided")

type UserLoader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type ClerkUserResolver interface {
	GetOrCreateClerkUser(ctx context.Context, clerkID string) (*user.User, error)
}

// ClerkVerifier checks a Clerk session token and returns its subject.
type ClerkVerifier func(ctx context.Context, token string) (string, error)

// VerifyClerkSession verifies token against the key set with clerk.SetKey.
func VerifyClerkSession(ctx context.Context, token string) (string, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Authenticator resolves request tokens to local users. Local HS256 tokens
// are tried first, then Clerk session tokens when Clerk is enabled.
type Authenticator struct {
	tokens      *auth.TokenIssuer
	users       UserLoader
	clerkUsers  ClerkUserResolver
	verifyClerk ClerkVerifier
}

func NewAuthenticator(tokens *auth.TokenIssuer, users UserLoader) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

func (a *Authenticator) WithClerk(resolver ClerkUserResolver, verify ClerkVerifier) *Authenticator {
	a.clerkUsers = resolver
	a.verifyClerk = verify
	return a
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	userID, _, err := a.tokens.Parse(token)
	if err == nil {
		return a.users.GetUserByID(ctx, userID)
	}

	if a.verifyClerk == nil {
		return nil, err
	}
	clerkID, clerkErr := a.verifyClerk(ctx, token)
	if clerkErr != nil {
		return nil, errors.Join(err, clerkErr)
	}
	return a.clerkUsers.GetOrCreateClerkUser(ctx, clerkID)
}

// TokenFromRequest reads a bearer token or the x-auth-token header.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("x-auth-token"))
}

// AuthMiddleware rejects requests without a valid token.
func (a *Authenticator) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}

		u, err := a.Authenticate(r.Context(), token)
		if err != nil {
			log.Printf("Token verification failed: %v", err)
			respondWithError(w, http.StatusUnauthorized, "Token is not valid")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// OptionalAuthMiddleware - allows requests with or without auth
func (a *Authenticator) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := TokenFromRequest(r); token != "" {
			if u, err := a.Authenticate(r.Context(), token); err == nil {
				r = r.WithContext(WithUser(r.Context(), u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTrainer must run after the auth middleware.
func RequireTrainer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := GetUser(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "User not authenticated")
			return
		}
		if !u.IsTrainer() {
			respondWithError(w, http.StatusForbidden, "Access denied. Trainer role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}

func GetUser(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserKey).(*user.User)
	return u, ok && u != nil
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	u, ok := GetUser(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return u.ID, true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}
