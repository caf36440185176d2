// Package export writes a projected week grid as JSON, CSV or a plain text
// table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kilianp07/dispatchboard/core/grid"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/slot"
)

// Formats lists the accepted Write formats.
var Formats = []string{"table", "csv", "json"}

// Write dispatches on format.
func Write(w io.Writer, format string, g grid.Grid) error {
	switch format {
	case "", "table":
		return WriteTable(w, g)
	case "csv":
		return WriteCSV(w, g)
	case "json":
		return WriteJSON(w, g)
	}
	return fmt.Errorf("unknown format %q, want one of %s", format, strings.Join(Formats, ", "))
}

// WriteJSON writes the grid to w in JSON format.
func WriteJSON(w io.Writer, g grid.Grid) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

var csvHeader = []string{"slot", "technician_id", "date", "work_order_id", "customer", "job_type", "start", "end", "status", "priority", "conflict"}

// WriteCSV writes one line per work order: every booked card in grid order,
// then the ranked unassigned queue.
func WriteCSV(w io.Writer, g grid.Grid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range g.Rows {
		for _, c := range row.Cells {
			conflicts := make(map[string]bool, len(c.ConflictIDs))
			for _, id := range c.ConflictIDs {
				conflicts[id] = true
			}
			for _, wo := range c.WorkOrders {
				if err := cw.Write(record(c.Key, wo, conflicts[wo.ID])); err != nil {
					return err
				}
			}
		}
	}
	for _, wo := range g.Unassigned {
		if err := cw.Write(record(slot.Encode(slot.Of(wo)), wo, false)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(key string, wo model.WorkOrder, conflict bool) []string {
	date := ""
	if !wo.Date.IsZero() {
		date = wo.Date.String()
	}
	return []string{
		key,
		wo.TechnicianID,
		date,
		wo.ID,
		wo.CustomerName,
		wo.JobType,
		wo.Start.String(),
		wo.End.String(),
		string(wo.Status),
		string(wo.Priority),
		strconv.FormatBool(conflict),
	}
}

// WriteTable renders one line per technician and one column per day.
// Conflicting cells are marked with "!".
func WriteTable(w io.Writer, g grid.Grid) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	head := []string{"TECHNICIAN"}
	for _, d := range g.Days {
		head = append(head, d.Weekday().String()[:3]+" "+d.String())
	}
	fmt.Fprintln(tw, strings.Join(head, "\t"))
	for _, row := range g.Rows {
		line := []string{technicianLabel(row.Technician)}
		for _, c := range row.Cells {
			line = append(line, cellLabel(c))
		}
		fmt.Fprintln(tw, strings.Join(line, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(g.Unassigned) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nUNASSIGNED (%d)\n", len(g.Unassigned))
	for _, wo := range g.Unassigned {
		flag := ""
		if wo.IsEmergency() {
			flag = " [emergency]"
		}
		when := "unscheduled"
		if !wo.Date.IsZero() {
			when = fmt.Sprintf("%s %s-%s", wo.Date, wo.Start, wo.End)
		}
		if _, err := fmt.Fprintf(w, "  %s %s%s\n", wo.ID, when, flag); err != nil {
			return err
		}
	}
	return nil
}

func technicianLabel(t model.Technician) string {
	if t.Name == "" {
		return t.ID
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.ID)
}

func cellLabel(c grid.Cell) string {
	if len(c.WorkOrders) == 0 {
		return "-"
	}
	parts := make([]string, len(c.WorkOrders))
	for i, wo := range c.WorkOrders {
		parts[i] = fmt.Sprintf("%s %s-%s", wo.ID, wo.Start, wo.End)
	}
	s := strings.Join(parts, ", ")
	if c.Conflict {
		s += " !"
	}
	return s
}
