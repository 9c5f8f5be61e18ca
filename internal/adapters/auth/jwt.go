// Package auth resolves connection credentials into user identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

const GuestPrefix = "guest:"

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
	errNoSubject    = errors.New("token has no subject")
)

// JWTResolver validates HS256 bearer tokens; the `sub` claim is the user
// identity. When allowGuests is set (non-release mode), tokens of the
// form "guest:<id>" are accepted as-is for cookie-issued guest sessions.
type JWTResolver struct {
	secret      []byte
	allowGuests bool
}

func NewJWTResolver(secret string, allowGuests bool) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), allowGuests: allowGuests}
}

func (r *JWTResolver) Resolve(_ context.Context, creds core.Credentials) (domain.UserID, error) {
	token := strings.TrimSpace(creds.Token)
	if token == "" {
		return "", errMissingToken
	}
	if r.allowGuests && strings.HasPrefix(token, GuestPrefix) {
		id := token[len(GuestPrefix):]
		if id == "" || len(id) > domain.MaxUserIDLen {
			return "", errInvalidToken
		}
		return domain.UserID(token), nil
	}

	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if !parsed.Valid {
		return "", errInvalidToken
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errNoSubject
	}
	return domain.UserID(sub), nil
}

var _ core.IdentityResolver = (*JWTResolver)(nil)

// Sign mints a token for a user. Token issuance proper lives in the
// account service; this helper backs tests and local tooling.
func Sign(secret string, user domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub": string(user),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
}
