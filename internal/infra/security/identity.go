package security

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/repository"
)

var (
	// ErrInvalidCredentials covers unknown accounts and wrong passwords alike,
	// so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the platform access token failed verification.
	ErrInvalidToken = errors.New("invalid identity token")
)

// Credentials is the minimal credential view the identity adapter needs.
type Credentials struct {
	UserID       string
	Email        string
	PasswordHash string
	Roles        []string
}

// CredentialSource resolves stored credentials for the identity adapter.
type CredentialSource interface {
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	GetCredentialsByID(ctx context.Context, userID string) (*Credentials, error)
}

// PlatformIdentityProvider adapts the hosted identity platform: passwords are
// verified against stored Argon2id hashes and platform-issued access tokens
// are parsed into identities.
type PlatformIdentityProvider struct {
	creds     CredentialSource
	jwtSecret []byte
}

// NewPlatformIdentityProvider constructs the adapter.
func NewPlatformIdentityProvider(creds CredentialSource, jwtSecret []byte) *PlatformIdentityProvider {
	return &PlatformIdentityProvider{creds: creds, jwtSecret: jwtSecret}
}

// Authenticate validates the email/password pair and returns the identity.
func (p *PlatformIdentityProvider) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	creds, err := p.creds.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}

	ok, err := VerifyPassword(password, creds.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return &domain.Identity{UserID: creds.UserID, Email: creds.Email, Roles: creds.Roles}, nil
}

type identityClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// IdentityFromToken parses a platform-issued access token into an identity.
func (p *PlatformIdentityProvider) IdentityFromToken(_ context.Context, token string) (*domain.Identity, error) {
	claims := &identityClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, ErrInvalidToken
	}

	return &domain.Identity{UserID: subject, Email: claims.Email, Roles: claims.Roles}, nil
}

// Lookup resolves a user id into its identity.
func (p *PlatformIdentityProvider) Lookup(ctx context.Context, userID string) (*domain.Identity, error) {
	creds, err := p.creds.GetCredentialsByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return &domain.Identity{UserID: creds.UserID, Email: creds.Email, Roles: creds.Roles}, nil
}

// VerifyPassword re-confirms the password for an already-authenticated user.
func (p *PlatformIdentityProvider) VerifyPassword(ctx context.Context, userID, password string) (bool, error) {
	creds, err := p.creds.GetCredentialsByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get credentials: %w", err)
	}
	return VerifyPassword(password, creds.PasswordHash)
}

var _ port.IdentityProvider = (*PlatformIdentityProvider)(nil)
