// Package resumetoken issues and reads signed, time-limited links back into a draft.
package resumetoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "driver-application"

// MinSecretLength is the shortest HS256 secret accepted.
const MinSecretLength = 32

// Payload is what a valid token resolves to.
type Payload struct {
	ApplicationID string
	Email         string
	Expiry        time.Time
}

// Claims is the token body.
type Claims struct {
	ApplicationID string `json:"application_id"`
	Email         string `json:"email"`
	jwt.RegisteredClaims
}

// Codec signs and verifies resume tokens with a shared secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("resume token secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("resume token ttl must be positive")
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Encode signs a token for the application and email. The email is stored lower-cased.
func (c *Codec) Encode(applicationID, email string) (string, time.Time, error) {
	if applicationID == "" || email == "" {
		return "", time.Time{}, errors.New("application id and email are required")
	}
	now := c.now()
	expiry := now.Add(c.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ApplicationID: applicationID,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   applicationID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}

// Decode returns nil for any malformed, tampered, expired or foreign token.
// Callers treat nil exactly like a missing token.
func (c *Codec) Decode(token string) *Payload {
	if token == "" {
		return nil
	}
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing algorithm")
		}
		return c.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil
	}
	if claims.ApplicationID == "" || claims.Email == "" {
		return nil
	}
	return &Payload{
		ApplicationID: claims.ApplicationID,
		Email:         claims.Email,
		Expiry:        claims.ExpiresAt.Time,
	}
}

// Matches reports whether email belongs to the token, ignoring case.
func (p *Payload) Matches(email string) bool {
	return p != nil && strings.EqualFold(strings.TrimSpace(email), p.Email)
}
