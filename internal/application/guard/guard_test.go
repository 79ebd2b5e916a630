package guard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyCheck(t *testing.T) {
	loaded := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()

	tests := []struct {
		name   string
		s      Signals
		reason string
	}{
		{"passes", Signals{FormLoadedAt: loaded, SubmittedAt: loaded.Add(3 * time.Second)}, ""},
		{"honeypot filled", Signals{HoneypotValue: "acme.com", FormLoadedAt: loaded, SubmittedAt: loaded.Add(time.Minute)}, ReasonHoneypot},
		{"honeypot wins over dwell", Signals{HoneypotValue: "x", FormLoadedAt: loaded, SubmittedAt: loaded}, ReasonHoneypot},
		{"too fast", Signals{FormLoadedAt: loaded, SubmittedAt: loaded.Add(2999 * time.Millisecond)}, ReasonTooFast},
		{"no load time", Signals{SubmittedAt: loaded}, ReasonTooFast},
		{"whitespace honeypot filled", Signals{HoneypotValue: "  ", FormLoadedAt: loaded, SubmittedAt: loaded.Add(time.Hour)}, ReasonHoneypot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.s)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			r, ok := AsRejection(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, r.Reason)
		})
	}
}

func TestPolicyDefaults(t *testing.T) {
	var p Policy
	assert.Equal(t, DefaultHoneypotField, p.Field())

	loaded := time.Now()
	assert.Error(t, p.Check(Signals{FormLoadedAt: loaded, SubmittedAt: loaded.Add(time.Second)}))

	custom := Policy{MinDwell: 500 * time.Millisecond, HoneypotField: "fax"}
	assert.NoError(t, custom.Check(Signals{FormLoadedAt: loaded, SubmittedAt: loaded.Add(time.Second)}))
	assert.Equal(t, "fax", custom.Field())
}

func TestCheckSignature(t *testing.T) {
	assert.NoError(t, CheckSignature("data:image/png;base64,AAA"))

	r, ok := AsRejection(CheckSignature(" "))
	require.True(t, ok)
	assert.Equal(t, ReasonMissingSignature, r.Reason)
}

func TestAsRejection_Wrapped(t *testing.T) {
	err := fmt.Errorf("submit: %w", Reject(ReasonNoApplicationID))
	r, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonNoApplicationID, r.Reason)

	_, ok = AsRejection(fmt.Errorf("plain"))
	assert.False(t, ok)
}
