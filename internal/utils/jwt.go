package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "auth-token"

// SessionClaims is the identity carried inside a session token.
type SessionClaims struct {
	UserID uint64     `json:"userId"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

type sessionJWT struct {
	SessionClaims
	jwt.RegisteredClaims
}

// SessionCodec signs and verifies HS256 session tokens.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionCodec returns a codec using secret for signing.  An empty secret
// is refused; configuration decides what the secret is.
func NewSessionCodec(secret string, ttl time.Duration) (*SessionCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	return &SessionCodec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime given to issued tokens.
func (c *SessionCodec) TTL() time.Duration { return c.ttl }

// Issue signs the claims with an expiry of now+ttl and returns the token and
// its expiry.
func (c *SessionCodec) Issue(claims SessionClaims) (string, time.Time, error) {
	now := c.now().UTC()
	exp := now.Add(c.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionJWT{
		SessionClaims: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(claims.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses raw and returns its claims.  Any malformed, expired or
// mis-signed token yields ok=false; the reason is deliberately not reported.
func (c *SessionCodec) Verify(raw string) (*SessionClaims, bool) {
	if raw == "" {
		return nil, false
	}
	var claims sessionJWT
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, false
	}
	if claims.UserID == 0 {
		return nil, false
	}
	out := claims.SessionClaims
	return &out, true
}
