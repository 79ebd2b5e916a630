// Package formsession records when the application form was served so the server can
// re-run the dwell-time and honeypot checks without trusting the client clock.
package formsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"driver-application/internal/application/guard"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "driver-application:form-session:"
	DefaultTTL = 24 * time.Hour
)

var ErrNotFound = errors.New("form session not found")

// Session is handed to the form on load.
type Session struct {
	ID            string    `json:"session_id"`
	HoneypotField string    `json:"honeypot_field"`
	IssuedAt      time.Time `json:"issued_at"`
}

type Store struct {
	client redis.Cmdable
	policy guard.Policy
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

func NewStore(client redis.Cmdable, policy guard.Policy, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, policy: policy, ttl: ttl, now: time.Now, newID: uuid.NewString}
}

// Issue starts a form session.
func (s *Store) Issue(ctx context.Context) (*Session, error) {
	sess := &Session{
		ID:            s.newID(),
		HoneypotField: s.policy.Field(),
		IssuedAt:      s.now().UTC(),
	}
	body, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal form session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sess.ID, body, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store form session: %w", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read form session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode form session: %w", err)
	}
	return &sess, nil
}

// Verify runs the anti-automation gates against the stored issue time.
// A missing or expired session is a rejection, not an infrastructure error.
func (s *Store) Verify(ctx context.Context, id, honeypotValue string) error {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return guard.Reject(guard.ReasonUnknownSession)
	}
	if err != nil {
		return err
	}
	return s.policy.Check(guard.Signals{
		HoneypotValue: honeypotValue,
		FormLoadedAt:  sess.IssuedAt,
		SubmittedAt:   s.now().UTC(),
	})
}

// Close ends a session once its application is submitted.
func (s *Store) Close(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete form session: %w", err)
	}
	return nil
}
