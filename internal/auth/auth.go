// Package auth is the identity boundary: it verifies bearer tokens, exposes
// the authenticated user to handlers, and detects when a request's claimed
// subject differs from the identifier previously stored for the same email —
// the trigger for an identity merge.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/planora/planora/internal/store"
)

var (
	// ErrInvalidCredentials is returned for a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for malformed, expired, or mis-signed tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the token payload: the provider subject plus the email used for
// identity reconciliation.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies HMAC-signed tokens and handles the legacy
// local-auth flow.
type Service struct {
	store    *store.Store
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates an auth service. tokenTTL bounds how long issued tokens
// stay valid.
func NewService(st *store.Store, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		store:    st,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// IssueToken signs a token for the given user.
func (s *Service) IssueToken(u *store.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: u.Email,
		Name:  u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token string and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Login verifies a legacy local-auth email/password pair and returns a
// signed token with the user.
func (s *Service) Login(ctx context.Context, email, password string) (string, *store.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("getting user: %w", err)
	}
	if u == nil || u.PasswordHash == "" {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Register creates a local-auth account and returns a signed token with the
// user. Registering an email that already has an account fails.
func (s *Service) Register(ctx context.Context, email, name, password string) (string, *store.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || name == "" {
		return "", nil, fmt.Errorf("email and name are required")
	}
	if len(password) < 8 {
		return "", nil, fmt.Errorf("password must be at least 8 characters")
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("getting user: %w", err)
	}
	if existing != nil {
		return "", nil, fmt.Errorf("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hashing password: %w", err)
	}

	u, err := s.store.UpsertUser(ctx, store.UpsertUserInput{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	})
	if err != nil {
		return "", nil, fmt.Errorf("creating user: %w", err)
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Resolve maps verified claims to the canonical user row, reconciling
// identities when the claimed subject differs from the id stored for the
// same email. This is how a legacy local-auth account gets collapsed into a
// newer provider identity on that person's first provider sign-in.
func (s *Service) Resolve(ctx context.Context, claims *Claims) (*store.User, error) {
	if u, err := s.store.GetUser(ctx, claims.Subject); err != nil {
		return nil, err
	} else if u != nil {
		return u, nil
	}

	displaced, err := s.store.LookupDisplacedUser(ctx, claims.Email, claims.Subject)
	if err != nil {
		return nil, err
	}
	if displaced != nil {
		// The provider subject always wins survivorship.
		if err := s.store.MigrateUser(ctx, displaced.ID, claims.Subject); err != nil {
			return nil, fmt.Errorf("reconciling identities: %w", err)
		}
		return s.store.GetUser(ctx, claims.Subject)
	}

	// First sign-in for this person: create the row under the claimed id.
	return s.store.UpsertUser(ctx, store.UpsertUserInput{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
	})
}
