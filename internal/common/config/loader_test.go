package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func baseYAML() string {
	return `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: drivers
    user: app
  redis:
    address: localhost:6379
security:
  resume_token_secret: "0123456789abcdef0123456789abcdef"
  ssn_encryption_key: "` + validKey + `"
application:
  site_url: https://drivers.example.com
workers:
  send-notification:
    enabled: true
`
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML()))
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, "driver-application-submitted", cfg.Camunda.ProcessID)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "driver-applications", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, 30*time.Second, cfg.Application.AutosaveInterval())
	assert.Equal(t, 3*time.Second, cfg.Security.MinDwell())
	assert.Equal(t, 7*24*time.Hour, cfg.Security.ResumeTokenLifetime())
	assert.Equal(t, int64(10<<20), cfg.Application.MaxUploadBytes)

	worker := GetWorkerConfig(cfg, WorkerSendNotification)
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 3, worker.MaxRetries)
	assert.True(t, IsWorkerEnabled(cfg, WorkerIndexApplication))
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_SITE_URL", "https://apply.example.com")
	body := strings.Replace(baseYAML(), "https://drivers.example.com", "${TEST_SITE_URL}", 1)

	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "https://apply.example.com", cfg.Application.SiteURL)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{"short secret", [2]string{"0123456789abcdef0123456789abcdef", "short"}, "resume_token_secret"},
		{"bad key", [2]string{validKey, "zz"}, "ssn_encryption_key"},
		{"short key", [2]string{validKey, "0001"}, "32 bytes"},
		{"missing redis", [2]string{"localhost:6379", ""}, "redis.address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Replace(baseYAML(), tt.replace[0], tt.replace[1], 1)
			_, err := LoadFromFile(writeConfig(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{}
	worker := GetWorkerConfig(cfg, "unknown")
	assert.True(t, worker.Enabled)
	assert.Equal(t, 30000, worker.Timeout)
}
