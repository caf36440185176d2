package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/grid"
	"github.com/kilianp07/dispatchboard/core/model"
)

var monday = model.MustParseDate("2024-06-03")

func sampleGrid() grid.Grid {
	techs := []model.Technician{{ID: "T1", Name: "Alex"}, {ID: "T2"}}
	orders := []model.WorkOrder{
		{ID: "W1", Date: monday, Start: model.At(9, 0), End: model.At(10, 0), TechnicianID: "T1", Status: model.StatusScheduled},
		{ID: "W2", Date: monday, Start: model.At(9, 30), End: model.At(10, 30), TechnicianID: "T1", Priority: model.PriorityEmergency},
		{ID: "W3", Date: monday.AddDays(1), Start: model.At(14, 0), End: model.At(15, 0), Priority: model.PriorityEmergency},
		{ID: "W4", CustomerName: "Dupont, Jean"},
	}
	return grid.Week(orders, techs, monday, grid.DefaultOptions())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleGrid()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"T1-2024-06-03", "T1", "2024-06-03", "W1", "", "", "09:00", "10:00", "scheduled", "", "true"}, rows[1])
	assert.Equal(t, "W2", rows[2][3])
	assert.Equal(t, "unassigned-2024-06-04", rows[3][0])
	assert.Equal(t, "W4", rows[4][3])
	assert.Equal(t, "Dupont, Jean", rows[4][4])
	assert.Equal(t, "", rows[4][2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleGrid()))
	var out struct {
		Days []string `json:"days"`
		Rows []struct {
			Cells []struct {
				Key      string `json:"key"`
				Conflict bool   `json:"conflict"`
			} `json:"cells"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out.Days, 7)
	assert.True(t, out.Rows[0].Cells[0].Conflict)
	assert.Equal(t, "T2-2024-06-09", out.Rows[1].Cells[6].Key)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleGrid()))
	out := buf.String()
	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "TECHNICIAN"))
	assert.Contains(t, lines[0], "Mon 2024-06-03")
	assert.Contains(t, lines[1], "Alex (T1)")
	assert.Contains(t, lines[1], "W1 09:00-10:00, W2 09:30-10:30 !")
	assert.True(t, strings.HasPrefix(lines[2], "T2"))
	assert.Contains(t, out, "UNASSIGNED (2)")
	assert.Contains(t, out, "W3 2024-06-04 14:00-15:00 [emergency]")
	assert.Contains(t, out, "W4 unscheduled")
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "xml", sampleGrid())
	assert.ErrorContains(t, err, "unknown format")
	assert.NoError(t, Write(&bytes.Buffer{}, "csv", sampleGrid()))
}
