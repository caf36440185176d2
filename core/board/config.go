package board

import (
	"fmt"

	"github.com/kilianp07/dispatchboard/core/conflict"
	"github.com/kilianp07/dispatchboard/core/grid"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/status"
)

// ConflictConfig controls which statuses are left out of conflict
// detection. IncludeAll disables every exclusion.
type ConflictConfig struct {
	ExcludeStatuses []string `json:"exclude_statuses"`
	IncludeAll      bool     `json:"include_all"`
}

// Config defines the board session settings.
type Config struct {
	// RefreshIntervalSeconds triggers a periodic re-fetch; 0 disables it.
	RefreshIntervalSeconds int            `json:"refresh_interval_seconds"`
	SlotMinutes            int            `json:"slot_minutes"`
	DayStart               string         `json:"day_start"`
	DayEnd                 string         `json:"day_end"`
	WorkdayMinutes         int            `json:"workday_minutes"`
	Conflicts              ConflictConfig `json:"conflicts"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.DayStart == "" {
		c.DayStart = "07:00"
	}
	if c.DayEnd == "" {
		c.DayEnd = "19:00"
	}
	if c.WorkdayMinutes == 0 {
		c.WorkdayMinutes = 8 * 60
	}
	if len(c.Conflicts.ExcludeStatuses) == 0 && !c.Conflicts.IncludeAll {
		for _, s := range status.Unschedulable() {
			c.Conflicts.ExcludeStatuses = append(c.Conflicts.ExcludeStatuses, string(s))
		}
	}
}

// Validate checks the settings can build projection options.
func (c Config) Validate() error {
	if c.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("refresh_interval_seconds must be >= 0")
	}
	if c.SlotMinutes < 0 || c.SlotMinutes > 24*60 {
		return fmt.Errorf("slot_minutes out of range: %d", c.SlotMinutes)
	}
	if c.WorkdayMinutes <= 0 || c.WorkdayMinutes > 24*60 {
		return fmt.Errorf("workday_minutes out of range: %d", c.WorkdayMinutes)
	}
	_, err := c.Options()
	return err
}

// Options converts the settings into projection options.
func (c Config) Options() (grid.Options, error) {
	opts := grid.DefaultOptions()
	opts.SlotMinutes = c.SlotMinutes
	if c.DayStart != "" {
		t, err := model.ParseClockTime(c.DayStart)
		if err != nil {
			return opts, fmt.Errorf("day_start: %w", err)
		}
		opts.DayStart = t
	}
	if c.DayEnd != "" {
		t, err := model.ParseClockTime(c.DayEnd)
		if err != nil {
			return opts, fmt.Errorf("day_end: %w", err)
		}
		opts.DayEnd = t
	}
	if opts.DayEnd <= opts.DayStart {
		return opts, fmt.Errorf("day_end %s must follow day_start %s", opts.DayEnd, opts.DayStart)
	}
	switch {
	case c.Conflicts.IncludeAll:
		opts.Policy = conflict.Policy{}
	case len(c.Conflicts.ExcludeStatuses) > 0:
		p := conflict.Policy{}
		for _, s := range c.Conflicts.ExcludeStatuses {
			p.ExcludeStatuses = append(p.ExcludeStatuses, model.Status(s))
		}
		opts.Policy = p
	}
	return opts, nil
}
