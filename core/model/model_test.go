package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	cases := []struct {
		in   string
		want ClockTime
	}{
		{"09:00", At(9, 0)},
		{"9:05", At(9, 5)},
		{"0930", At(9, 30)},
		{"930", At(9, 30)},
		{"17:45:59", At(17, 45)},
		{"24:00", MinutesPerDay},
		{" 00:00 ", 0},
	}
	for _, c := range cases {
		got, err := ParseClockTime(c.in)
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("parse %q: got %d want %d", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"", "9", "25:00", "12:60", "ab:cd", "12345", "24:01"} {
		if _, err := ParseClockTime(bad); !errors.Is(err, ErrInvalidTime) {
			t.Errorf("parse %q: expected ErrInvalidTime, got %v", bad, err)
		}
	}
}

func TestClockTimeJSON(t *testing.T) {
	data, err := json.Marshal(At(9, 5))
	require.NoError(t, err)
	assert.Equal(t, `"09:05"`, string(data))

	var c ClockTime
	require.NoError(t, json.Unmarshal([]byte(`"1015"`), &c))
	assert.Equal(t, At(10, 15), c)
	require.NoError(t, json.Unmarshal([]byte(`600`), &c))
	assert.Equal(t, At(10, 0), c)
}

func TestDateMondayOf(t *testing.T) {
	// 2024-06-03 is a Monday.
	mon := MustParseDate("2024-06-03")
	for i := 0; i < 7; i++ {
		d := mon.AddDays(i)
		if got := d.MondayOf(); got != mon {
			t.Errorf("%s: monday %s want %s", d, got, mon)
		}
	}
	if got := MustParseDate("2024-06-02").MondayOf(); got != MustParseDate("2024-05-27") {
		t.Errorf("sunday belongs to previous week, got %s", got)
	}
}

func TestDateRangeDays(t *testing.T) {
	r, err := NewDateRange(MustParseDate("2024-02-27"), MustParseDate("2024-03-01"))
	require.NoError(t, err)
	days := r.Days()
	require.Len(t, days, 4)
	assert.Equal(t, "2024-02-29", days[2].String())
	assert.True(t, r.Contains(MustParseDate("2024-03-01")))
	assert.False(t, r.Contains(MustParseDate("2024-03-02")))
	assert.False(t, r.Contains(Date{}))

	_, err = NewDateRange(MustParseDate("2024-03-02"), MustParseDate("2024-03-01"))
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateJSONNull(t *testing.T) {
	var w WorkOrder
	require.NoError(t, json.Unmarshal([]byte(`{"id":"W2","date":null,"technicianId":null,"priority":"emergency"}`), &w))
	assert.True(t, w.Date.IsZero())
	assert.False(t, w.Assigned())
	assert.True(t, w.IsEmergency())
}

func TestWorkOrderJSONTechnicianNull(t *testing.T) {
	w := WorkOrder{ID: "W1", Date: NewDate(2024, time.June, 3), Start: At(9, 0), End: At(10, 0)}
	data, err := json.Marshal(w)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	v, ok := m["technicianId"]
	if !ok || v != nil {
		t.Fatalf("expected technicianId null, got %v", v)
	}
	assert.Equal(t, "2024-06-03", m["date"])
	assert.Equal(t, "09:00", m["startTime"])

	w.TechnicianID = "T1"
	data, err = json.Marshal(w)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "T1", m["technicianId"])
}

func TestSnapshotValidate(t *testing.T) {
	d := MustParseDate("2024-06-03")
	ok := Snapshot{
		Technicians: []Technician{{ID: "T1"}, {ID: "T2"}},
		WorkOrders: []WorkOrder{
			{ID: "W1", TechnicianID: "T1", Date: d, Start: At(9, 0), End: At(10, 0)},
			{ID: "W2", Priority: PriorityEmergency},
		},
	}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.WorkOrders = append([]WorkOrder{}, ok.WorkOrders...)
	bad.WorkOrders = append(bad.WorkOrders,
		WorkOrder{ID: "W1", TechnicianID: "T2", Date: d, Start: At(11, 0), End: At(12, 0)},
		WorkOrder{ID: "W3", TechnicianID: "T2", Date: d, Start: At(12, 0), End: At(11, 0)},
		WorkOrder{ID: "W4", TechnicianID: "T2", Start: At(8, 0), End: At(9, 0)},
	)
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
	assert.Contains(t, err.Error(), "W1: duplicate id")
	assert.Contains(t, err.Error(), "W3: start 12:00 not before end 11:00")
	assert.Contains(t, err.Error(), "W4: assigned without date")
}

func TestSnapshotLookup(t *testing.T) {
	s := Snapshot{Technicians: []Technician{{ID: "T1", Name: "Ada"}}, WorkOrders: []WorkOrder{{ID: "W1"}}}
	if _, ok := s.WorkOrder("W1"); !ok {
		t.Fatal("expected W1")
	}
	if _, ok := s.WorkOrder("missing"); ok {
		t.Fatal("unexpected work order")
	}
	tech, ok := s.Technician("T1")
	require.True(t, ok)
	assert.Equal(t, "Ada", tech.Name)
}
