// internal/workers/application/index-application/config.go
package indexapplication

import (
	"time"

	"driver-application/internal/common/config"
)

const DefaultIndex = "driver-applications"

type Config struct {
	Index   string
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Index:   cfg.Database.Elasticsearch.Index,
		Timeout: 15 * time.Second,
	}
	if c.Index == "" {
		c.Index = DefaultIndex
	}
	if timeout := config.GetWorkerConfig(cfg, TaskType).Timeout; timeout > 0 {
		c.Timeout = config.GetDuration(timeout)
	}
	return c
}
