package dispatch

import (
	"fmt"
	"time"
)

// Config tunes the assignment coordinator.
type Config struct {
	// RequestTimeoutSeconds bounds one assignment request. Zero leaves the
	// deadline to the transport.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
	// RefreshTimeoutSeconds bounds the re-fetch issued after every request.
	RefreshTimeoutSeconds int `json:"refresh_timeout_seconds"`
	// EventBuffer is the per-subscriber buffer of the coordinator event bus.
	EventBuffer int `json:"event_buffer"`
}

func (c *Config) SetDefaults() {
	if c.EventBuffer == 0 {
		c.EventBuffer = 32
	}
}

func (c Config) Validate() error {
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must be >= 0")
	}
	if c.RefreshTimeoutSeconds < 0 {
		return fmt.Errorf("refresh_timeout_seconds must be >= 0")
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("event_buffer must be >= 0")
	}
	return nil
}

func (c Config) requestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) refreshTimeout() time.Duration {
	return time.Duration(c.RefreshTimeoutSeconds) * time.Second
}
