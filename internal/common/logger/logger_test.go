package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMapToZapFields_RedactsSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapAdapter(zap.New(core))

	log.Info("step completed", map[string]interface{}{
		"ssn":            "123456789",
		"signature_data": "data:image/png;base64,AAAA",
		"Resume-Token":   "eyJhbGciOi",
		"applicationId":  "app-1",
	})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, redacted, fields["ssn"])
		assert.Equal(t, redacted, fields["signature_data"])
		assert.Equal(t, redacted, fields["Resume-Token"])
		assert.Equal(t, "app-1", fields["applicationId"])
	}
}

func TestMapToZapFields_Errors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapAdapter(zap.New(core))

	log.Warn("save failed", map[string]interface{}{"error": errors.New("connection reset")})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "connection reset", entries[0].ContextMap()["error"])
	}
}

func TestMapToZapFields_Empty(t *testing.T) {
	assert.Nil(t, mapToZapFields(nil))
}

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		assert.NotNil(t, New(level, "json"))
		assert.NotNil(t, New(level, "console"))
	}
}
