package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the exclusive upper bound of a same-day clock time,
// except for the end-of-day marker 24:00.
const MinutesPerDay = 24 * 60

// ClockTime is a wall-clock time of day expressed in minutes since midnight.
type ClockTime int

// At returns the clock time for the given hour and minute.
func At(hour, minute int) ClockTime { return ClockTime(hour*60 + minute) }

// ParseClockTime accepts "HH:MM", "H:MM", "HH:MM:SS", "HHMM" and "HMM".
// Seconds are truncated. "24:00" is accepted as an end-of-day bound.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTime)
	}
	var hs, ms string
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hs, ms = s[:i], s[i+1:]
		if j := strings.IndexByte(ms, ':'); j >= 0 {
			ms = ms[:j]
		}
	} else {
		if len(s) < 3 || len(s) > 4 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
		hs, ms = s[:len(s)-2], s[len(s)-2:]
	}
	if len(hs) == 0 || len(hs) > 2 || len(ms) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if h == 24 && m == 0 {
		return MinutesPerDay, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidTime, s)
	}
	return At(h, m), nil
}

// MustParseClockTime is ParseClockTime that panics on error. Used by fixtures.
func MustParseClockTime(s string) ClockTime {
	t, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t ClockTime) Hour() int   { return int(t) / 60 }
func (t ClockTime) Minute() int { return int(t) % 60 }

// Valid reports whether t lies within a single day, 24:00 included.
func (t ClockTime) Valid() bool { return t >= 0 && t <= MinutesPerDay }

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a clock string or a number of minutes.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = 0
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTime, data)
		}
		*t = ClockTime(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
