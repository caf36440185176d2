// Package slot encodes the drop-target identity of the schedule grid.
//
// A key has the form "<technicianId>-<YYYY-MM-DD>" where the technician
// segment is the literal "unassigned" for the unassigned pseudo-slot.
package slot

import (
	"errors"
	"fmt"

	"github.com/kilianp07/dispatchboard/core/model"
)

// Unassigned is the reserved technician segment of the unassigned pseudo-slot.
const Unassigned = "unassigned"

// dateSuffix is the length of "-YYYY-MM-DD".
const dateSuffix = len("-2006-01-02")

var ErrMalformedKey = errors.New("malformed slot key")

// Key addresses one technician/day cell. An empty TechnicianID is the
// unassigned pseudo-slot.
type Key struct {
	TechnicianID string
	Date         model.Date
}

func (k Key) IsUnassigned() bool { return k.TechnicianID == "" }

func (k Key) String() string { return Encode(k) }

// Encode renders k in its wire form.
func Encode(k Key) string {
	tech := k.TechnicianID
	if tech == "" {
		tech = Unassigned
	}
	return tech + "-" + k.Date.String()
}

// Decode parses a wire key. The date is read from the fixed-width suffix so
// technician ids may contain dashes; for dash-free ids this is the same as
// splitting at the first separator.
func Decode(s string) (Key, error) {
	if len(s) <= dateSuffix || s[len(s)-dateSuffix] != '-' {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	tech := s[:len(s)-dateSuffix]
	d, err := model.ParseDate(s[len(s)-dateSuffix+1:])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %w", ErrMalformedKey, s, err)
	}
	if tech == Unassigned {
		tech = ""
	}
	return Key{TechnicianID: tech, Date: d}, nil
}

// Of returns the slot a work order currently occupies.
func Of(w model.WorkOrder) Key {
	return Key{TechnicianID: w.TechnicianID, Date: w.Date}
}

// Same reports whether a and b address the same slot. The unassigned
// pseudo-slot is a single slot whatever its date.
func Same(a, b Key) bool {
	if a.TechnicianID != b.TechnicianID {
		return false
	}
	return a.IsUnassigned() || a.Date == b.Date
}
