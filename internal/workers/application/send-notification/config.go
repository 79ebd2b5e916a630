// internal/workers/application/send-notification/config.go
package sendnotification

import (
	"time"

	"driver-application/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	SMSSenderID  string
	Timeout      time.Duration
}

// LoadConfig reads the notification section and the worker timeout.
func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		EmailEnabled: cfg.Notifications.Email.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
		FromEmail:    cfg.Notifications.Email.FromEmail,
		SMSSenderID:  cfg.Notifications.SMS.SenderID,
		Timeout:      30 * time.Second,
	}
	if timeout := config.GetWorkerConfig(cfg, TaskType).Timeout; timeout > 0 {
		c.Timeout = config.GetDuration(timeout)
	}
	return c
}
