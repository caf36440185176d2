package config

import (
	"fmt"
	"time"
)

// HTTPConfig configures the board API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// Token, when set, is required as a bearer token on /api routes.
	Token               string `json:"token"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
	// RetryAfterSeconds is sent with 503 answers while the schedule is unavailable.
	RetryAfterSeconds int `json:"retry_after_seconds"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeoutSeconds == 0 {
		c.ReadTimeoutSeconds = 10
	}
	if c.WriteTimeoutSeconds == 0 {
		c.WriteTimeoutSeconds = 30
	}
	if c.RetryAfterSeconds == 0 {
		c.RetryAfterSeconds = 5
	}
}

func (c HTTPConfig) Validate() error {
	if c.ReadTimeoutSeconds < 0 || c.WriteTimeoutSeconds < 0 || c.RetryAfterSeconds < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}

func (c HTTPConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c HTTPConfig) RetryAfter() time.Duration {
	return time.Duration(c.RetryAfterSeconds) * time.Second
}
