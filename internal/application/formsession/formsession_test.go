package formsession

import (
	"context"
	"errors"
	"testing"
	"time"

	"driver-application/internal/application/guard"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issuedAt = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, *time.Time) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	now := issuedAt
	s := NewStore(client, guard.DefaultPolicy(), 0)
	s.now = func() time.Time { return now }
	s.newID = func() string { return "fs-1" }
	return s, mr, &now
}

func TestIssueAndGet(t *testing.T) {
	ctx := context.Background()
	s, mr, _ := newTestStore(t)

	sess, err := s.Issue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fs-1", sess.ID)
	assert.Equal(t, guard.DefaultHoneypotField, sess.HoneypotField)
	assert.Equal(t, DefaultTTL, mr.TTL(keyPrefix+"fs-1"))

	got, err := s.Get(ctx, "fs-1")
	require.NoError(t, err)
	assert.True(t, issuedAt.Equal(got.IssuedAt))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		id       string
		honeypot string
		elapsed  time.Duration
		reason   string
	}{
		{"human", "fs-1", "", 4 * time.Minute, ""},
		{"exactly min dwell", "fs-1", "", guard.DefaultMinDwell, ""},
		{"too fast", "fs-1", "", 2 * time.Second, guard.ReasonTooFast},
		{"honeypot filled", "fs-1", "http://spam.example", time.Hour, guard.ReasonHoneypot},
		{"unknown session", "fs-9", "", time.Hour, guard.ReasonUnknownSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, now := newTestStore(t)
			_, err := s.Issue(ctx)
			require.NoError(t, err)
			*now = issuedAt.Add(tt.elapsed)

			err = s.Verify(ctx, tt.id, tt.honeypot)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			rej, ok := guard.AsRejection(err)
			require.True(t, ok, "expected rejection, got %v", err)
			assert.Equal(t, tt.reason, rej.Reason)
		})
	}
}

func TestVerify_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	s, mr, now := newTestStore(t)
	_, err := s.Issue(ctx)
	require.NoError(t, err)

	mr.FastForward(DefaultTTL + time.Second)
	*now = issuedAt.Add(DefaultTTL + time.Second)

	rej, ok := guard.AsRejection(s.Verify(ctx, "fs-1", ""))
	require.True(t, ok)
	assert.Equal(t, guard.ReasonUnknownSession, rej.Reason)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s, mr, _ := newTestStore(t)
	_, err := s.Issue(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Close(ctx, "fs-1"))
	assert.False(t, mr.Exists(keyPrefix+"fs-1"))
}

func TestRedisFailures(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewStore(client, guard.DefaultPolicy(), time.Hour)

	mock.ExpectGet(keyPrefix + "fs-1").SetErr(errors.New("connection refused"))
	err := s.Verify(ctx, "fs-1", "")
	require.Error(t, err)
	_, isRejection := guard.AsRejection(err)
	assert.False(t, isRejection)
	assert.Contains(t, err.Error(), "read form session")

	mock.ExpectDel(keyPrefix + "fs-1").SetErr(errors.New("connection refused"))
	assert.ErrorContains(t, s.Close(ctx, "fs-1"), "delete form session")
	assert.NoError(t, mock.ExpectationsWereMet())
}
