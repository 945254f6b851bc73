package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

// Token is a signed identity token and its expiry.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Claims is what a verified token says about its bearer.
type Claims struct {
	UserID    int
	ID        string
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256 tokens carrying the user id.
type TokenService struct {
	secret       []byte
	ttl          time.Duration
	secureCookie bool
	revoker      Revoker
	now          func() time.Time
}

// NewTokenService constructs a TokenService. A nil revoker disables revocation.
func NewTokenService(secret string, ttl time.Duration, secureCookie bool, revoker Revoker) *TokenService {
	if revoker == nil {
		revoker = NoopRevoker{}
	}
	return &TokenService{
		secret:       []byte(secret),
		ttl:          ttl,
		secureCookie: secureCookie,
		revoker:      revoker,
		now:          time.Now,
	}
}

func (s *TokenService) Issue(userID int) (Token, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{
		Value:     signed,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks the signature, expiry and revocation state of raw.
func (s *TokenService) Verify(ctx context.Context, raw string) (Claims, error) {
	registered := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		raw,
		&registered,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	userID, err := strconv.Atoi(strings.TrimSpace(registered.Subject))
	if err != nil || userID < 1 {
		return Claims{}, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	if registered.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing id", ErrTokenInvalid)
	}

	revoked, err := s.revoker.IsRevoked(ctx, registered.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Claims{}, ErrTokenRevoked
	}

	return Claims{
		UserID:    userID,
		ID:        registered.ID,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}

// Revoke denylists the token until it would have expired anyway.
func (s *TokenService) Revoke(ctx context.Context, claims Claims) error {
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 || claims.ID == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, ttl)
}
