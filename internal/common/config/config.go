// internal/common/config/config.go
package config

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Security      SecurityConfig          `mapstructure:"security"`
	Application   ApplicationConfig       `mapstructure:"application"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // milliseconds
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	ProcessID      string `mapstructure:"process_id"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	Index      string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Security Configuration ---
type SecurityConfig struct {
	ResumeTokenSecret string `mapstructure:"resume_token_secret"`
	ResumeTokenTTL    int    `mapstructure:"resume_token_ttl"` // hours
	SSNEncryptionKey  string `mapstructure:"ssn_encryption_key"`
	MinDwellMs        int    `mapstructure:"min_dwell_ms"`
	HoneypotField     string `mapstructure:"honeypot_field"`
	FormSessionTTL    int    `mapstructure:"form_session_ttl"` // hours
}

// EncryptionKey decodes the hex-encoded SSN encryption key.
func (s SecurityConfig) EncryptionKey() ([]byte, error) {
	key, err := hex.DecodeString(s.SSNEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("security.ssn_encryption_key must be hex: %w", err)
	}
	return key, nil
}

// ApplicationConfig holds settings of the applicant-facing flow.
type ApplicationConfig struct {
	AutosaveIntervalMs int    `mapstructure:"autosave_interval_ms"`
	SiteURL            string `mapstructure:"site_url"`
	APIBaseURL         string `mapstructure:"api_base_url"`
	MaxUploadBytes     int64  `mapstructure:"max_upload_bytes"`
}

// NotificationConfig holds settings for the send-notification worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func (s SecurityConfig) ResumeTokenLifetime() time.Duration {
	return time.Duration(s.ResumeTokenTTL) * time.Hour
}

func (s SecurityConfig) FormSessionLifetime() time.Duration {
	return time.Duration(s.FormSessionTTL) * time.Hour
}

func (s SecurityConfig) MinDwell() time.Duration {
	return GetDuration(s.MinDwellMs)
}

func (a ApplicationConfig) AutosaveInterval() time.Duration {
	return GetDuration(a.AutosaveIntervalMs)
}
