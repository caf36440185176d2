package audit

import (
	"fmt"
	"strings"
)

// Config selects the audit backend.
type Config struct {
	// Type is one of "none", "memory", "jsonl" or "sqlite".
	Type     string   `json:"type"`
	Path     string   `json:"path"`
	Rotation Rotation `json:"rotation"`
}

func (c *Config) SetDefaults() {
	if c.Type == "" {
		c.Type = "none"
	}
	if c.Type == "jsonl" && c.Path == "" {
		c.Path = "audit/assignments.jsonl"
	}
	if c.Type == "sqlite" && c.Path == "" {
		c.Path = "audit/assignments.db"
	}
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Type) {
	case "none", "memory":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("audit.path is required for %s", c.Type)
		}
		if c.Rotation.MaxSizeMB < 0 || c.Rotation.MaxBackups < 0 || c.Rotation.MaxAgeDays < 0 {
			return fmt.Errorf("audit.rotation values must be >= 0")
		}
		return nil
	default:
		return fmt.Errorf("audit.type %q unsupported", c.Type)
	}
}

// Open builds the store described by c.
func Open(c Config) (Store, error) {
	switch strings.ToLower(c.Type) {
	case "", "none":
		return NopStore{}, nil
	case "memory":
		return NewMemoryStore(), nil
	case "jsonl":
		return NewJSONLStore(c.Path, c.Rotation)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	default:
		return nil, fmt.Errorf("audit.type %q unsupported", c.Type)
	}
}
