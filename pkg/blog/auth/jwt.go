// Package auth resolves blog identities from HS256 JSON Web Tokens carried
// in the Authorization header or the "token" cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/tendant/simple-blog/pkg/blog"
)

// CookieName is the cookie the session token is read from.
const CookieName = "token"

// Claim names carried by a session token besides "sub" and "exp".
const (
	ClaimName   = "name"
	ClaimEmail  = "email"
	ClaimAvatar = "avatar"
	ClaimRole   = "role"
)

// Service implements blog.AuthService with jwtauth
type Service struct {
	ja  *jwtauth.JWTAuth
	ttl time.Duration
	now func() time.Time
}

// Option configures the Service
type Option func(*Service)

// WithTTL sets the lifetime of issued tokens. Zero issues tokens without expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates an HS256 token service
func New(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	s := &Service{
		ja:  jwtauth.New("HS256", []byte(secret), nil),
		ttl: 24 * time.Hour,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ blog.AuthService = (*Service)(nil)

// CurrentUser resolves the identity in a token. Empty credentials are
// anonymous (nil, nil); anything unreadable is ErrUnauthenticated.
func (s *Service) CurrentUser(ctx context.Context, credentials string) (*blog.Identity, error) {
	if credentials == "" {
		return nil, nil
	}

	token, err := s.ja.Decode(credentials)
	if err != nil {
		return nil, fmt.Errorf("decode token: %v: %w", err, blog.ErrUnauthenticated)
	}
	if token == nil {
		return nil, blog.ErrUnauthenticated
	}
	if exp := token.Expiration(); !exp.IsZero() && !s.now().Before(exp) {
		return nil, fmt.Errorf("token expired at %s: %w", exp.Format(time.RFC3339), blog.ErrUnauthenticated)
	}

	id, err := uuid.Parse(token.Subject())
	if err != nil {
		return nil, fmt.Errorf("token subject: %v: %w", err, blog.ErrUnauthenticated)
	}

	claims := token.PrivateClaims()
	identity := &blog.Identity{
		ID:              id,
		FullName:        stringClaim(claims, ClaimName),
		Email:           stringClaim(claims, ClaimEmail),
		ProfileImageURL: stringClaim(claims, ClaimAvatar),
		Role:            blog.Role(stringClaim(claims, ClaimRole)),
	}
	if identity.Role == "" {
		identity.Role = blog.RoleUser
	}
	return identity, nil
}

// IssueToken signs a session token for identity
func (s *Service) IssueToken(identity blog.Identity) (string, error) {
	claims := map[string]interface{}{
		"sub":       identity.ID.String(),
		"iat":       s.now().Unix(),
		ClaimName:   identity.FullName,
		ClaimEmail:  identity.Email,
		ClaimAvatar: identity.ProfileImageURL,
		ClaimRole:   string(identity.Role),
	}
	if s.ttl > 0 {
		claims["exp"] = s.now().Add(s.ttl).Unix()
	}

	_, tokenString, err := s.ja.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// TokenFromCookie reads the session token cookie
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// TokenFromRequest returns the bearer token, falling back to the cookie
func TokenFromRequest(r *http.Request) string {
	if token := jwtauth.TokenFromHeader(r); token != "" {
		return token
	}
	return TokenFromCookie(r)
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
