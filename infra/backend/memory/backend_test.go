package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/factory"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/schedule"
)

const fixtureYAML = `
technicians:
  - id: T1
    name: Alex Moreau
  - id: T2
    name: Sam Petit
    availability: on-job
workOrders:
  - id: W1
    customerName: Dupont
    jobType: boiler
    date: "2024-06-03"
    startTime: "09:00"
    endTime: "10:00"
    status: scheduled
    technicianId: T1
  - id: W2
    customerName: Martin
    date: "2024-06-03"
    startTime: "09:30"
    endTime: "10:30"
    priority: emergency
  - id: W3
    customerName: Later
    date: "2024-06-20"
    startTime: "08:00"
    endTime: "09:00"
`

func week() model.DateRange {
	r, _ := model.NewDateRange(model.MustParseDate("2024-06-03"), model.MustParseDate("2024-06-09"))
	return r
}

func newFixtureBackend(t *testing.T) *Backend {
	t.Helper()
	fx, err := DecodeFixture(strings.NewReader(fixtureYAML))
	require.NoError(t, err)
	techs, orders, err := fx.Model()
	require.NoError(t, err)
	return New(techs, orders)
}

func TestFixtureModel(t *testing.T) {
	fx, err := DecodeFixture(strings.NewReader(fixtureYAML))
	require.NoError(t, err)
	techs, orders, err := fx.Model()
	require.NoError(t, err)
	require.Len(t, techs, 2)
	assert.Equal(t, model.AvailabilityAvailable, techs[0].Availability)
	assert.Equal(t, model.AvailabilityOnJob, techs[1].Availability)
	require.Len(t, orders, 3)
	assert.Equal(t, model.At(9, 30), orders[1].Start)
	assert.Equal(t, model.PriorityEmergency, orders[1].Priority)
	assert.Equal(t, model.StatusNew, orders[1].Status)
	assert.Equal(t, model.PriorityNormal, orders[0].Priority)

	_, _, err = Fixture{WorkOrders: []FixtureWorkOrder{{ID: "X", StartTime: "25:99"}}}.Model()
	assert.Error(t, err)
}

func TestFetchFiltersRange(t *testing.T) {
	b := newFixtureBackend(t)
	snap, err := b.FetchSchedule(context.Background(), "acme", week())
	require.NoError(t, err)
	assert.Equal(t, "acme", snap.Tenant)
	assert.Len(t, snap.Technicians, 2)
	require.Len(t, snap.WorkOrders, 2)
	assert.Equal(t, 1, b.Fetches())
	require.NoError(t, snap.Validate())
}

func TestSetAssignment(t *testing.T) {
	ctx := context.Background()
	b := newFixtureBackend(t)
	require.NoError(t, b.SetAssignment(ctx, "acme", "W2", "T1"))

	snap, err := b.FetchSchedule(ctx, "acme", week())
	require.NoError(t, err)
	w2, ok := snap.WorkOrder("W2")
	require.True(t, ok)
	assert.Equal(t, "T1", w2.TechnicianID)
	assert.Equal(t, model.StatusScheduled, w2.Status)

	require.NoError(t, b.SetAssignment(ctx, "acme", "W2", ""))
	snap, _ = b.FetchSchedule(ctx, "acme", week())
	w2, _ = snap.WorkOrder("W2")
	assert.False(t, w2.Assigned())
	assert.Len(t, b.Calls(), 2)
}

func TestSetAssignmentFailures(t *testing.T) {
	ctx := context.Background()
	b := newFixtureBackend(t)

	err := b.SetAssignment(ctx, "acme", "W9", "T1")
	assert.ErrorIs(t, err, schedule.ErrNotFound)

	err = b.SetAssignment(ctx, "acme", "W2", "T7")
	var ae *schedule.AssignmentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "unknown technician", ae.Reason)

	b.Reject("W2", "technician on leave")
	err = b.SetAssignment(ctx, "acme", "W2", "T1")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "technician on leave", ae.Reason)
	assert.ErrorIs(t, err, schedule.ErrRejected)

	b.Accept("W2")
	assert.NoError(t, b.SetAssignment(ctx, "acme", "W2", "T1"))
}

func TestFailFetches(t *testing.T) {
	b := newFixtureBackend(t)
	boom := errors.New("boom")
	b.FailFetches(boom, nil)
	_, err := b.FetchSchedule(context.Background(), "acme", week())
	assert.ErrorIs(t, err, boom)
	_, err = b.FetchSchedule(context.Background(), "acme", week())
	assert.NoError(t, err)
	_, err = b.FetchSchedule(context.Background(), "acme", week())
	assert.NoError(t, err)
}

func TestRegisteredFactory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte(fixtureYAML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	be, err := schedule.NewBackend(factory.ModuleConfig{Type: "memory", Conf: map[string]any{"fixture": path}})
	require.NoError(t, err)
	snap, err := be.FetchSchedule(context.Background(), "acme", week())
	require.NoError(t, err)
	assert.Len(t, snap.WorkOrders, 2)

	empty, err := schedule.NewBackend(factory.ModuleConfig{Type: "memory"})
	require.NoError(t, err)
	snap, err = empty.FetchSchedule(context.Background(), "acme", week())
	require.NoError(t, err)
	assert.Empty(t, snap.WorkOrders)
}

func TestDemoFixture(t *testing.T) {
	be, err := FromFixture(filepath.Join("..", "..", "..", "qa", "fixtures", "demo.yaml"))
	require.NoError(t, err)
	snap, err := be.FetchSchedule(context.Background(), "acme", week())
	require.NoError(t, err)
	require.NoError(t, snap.Validate())
	assert.Len(t, snap.Technicians, 3)
	assert.Len(t, snap.WorkOrders, 5)
	w5, ok := snap.WorkOrder("W5")
	require.True(t, ok)
	assert.True(t, w5.Date.IsZero())
}
