// Package schedule holds the contract of the schedule data service and the
// single owned store of the last fetched snapshot.
package schedule

import (
	"context"

	"github.com/kilianp07/dispatchboard/core/factory"
	"github.com/kilianp07/dispatchboard/core/model"
)

// Fetcher returns the full roster and work-order snapshot for a tenant and
// date range. There is no delta mode.
type Fetcher interface {
	FetchSchedule(ctx context.Context, tenant string, r model.DateRange) (model.Snapshot, error)
}

// Assigner sets or clears the technician of one work order. An empty
// technicianID unassigns it. Implementations must not retry on their own.
type Assigner interface {
	SetAssignment(ctx context.Context, tenant, workOrderID, technicianID string) error
}

// Backend is the data acquisition service consumed by the board.
type Backend interface {
	Fetcher
	Assigner
}

var backendRegistry = factory.NewRegistry[Backend]()

// RegisterBackend adds a backend factory identified by name.
func RegisterBackend(name string, f factory.Factory[Backend]) error {
	return backendRegistry.Register(name, f)
}

// NewBackend builds the configured backend.
func NewBackend(cfg factory.ModuleConfig) (Backend, error) {
	return backendRegistry.Create(cfg)
}

// Backends lists registered backend types.
func Backends() []string { return backendRegistry.Names() }
