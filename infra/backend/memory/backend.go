// Package memory is an in-process schedule backend. It serves fixtures for
// the scenario runner and the CLI and records every call for tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kilianp07/dispatchboard/core/factory"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/schedule"
)

// Call is one recorded SetAssignment.
type Call struct {
	Tenant       string
	WorkOrderID  string
	TechnicianID string
}

// Backend keeps one roster and work-order list shared by all tenants.
type Backend struct {
	mu         sync.Mutex
	techs      []model.Technician
	orders     []model.WorkOrder
	fetches    int
	calls      []Call
	fetchErrs  []error
	rejections map[string]string
	assignHook func(ctx context.Context, c Call)
}

func New(techs []model.Technician, orders []model.WorkOrder) *Backend {
	return &Backend{
		techs:      slices.Clone(techs),
		orders:     slices.Clone(orders),
		rejections: make(map[string]string),
	}
}

// FromFixture builds a backend from a YAML fixture file.
func FromFixture(path string) (*Backend, error) {
	fx, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	techs, orders, err := fx.Model()
	if err != nil {
		return nil, err
	}
	return New(techs, orders), nil
}

// FetchSchedule returns the roster and the work orders dated inside r plus
// every undated one.
func (b *Backend) FetchSchedule(ctx context.Context, tenant string, r model.DateRange) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if len(b.fetchErrs) > 0 {
		err := b.fetchErrs[0]
		b.fetchErrs = b.fetchErrs[1:]
		if err != nil {
			return model.Snapshot{}, err
		}
	}
	snap := model.Snapshot{
		Tenant:      tenant,
		Range:       r,
		Technicians: slices.Clone(b.techs),
		WorkOrders:  make([]model.WorkOrder, 0, len(b.orders)),
	}
	for _, wo := range b.orders {
		if wo.Date.IsZero() || r.Contains(wo.Date) {
			snap.WorkOrders = append(snap.WorkOrders, wo)
		}
	}
	return snap, nil
}

// SetAssignment updates the technician of one work order.
func (b *Backend) SetAssignment(ctx context.Context, tenant, workOrderID, technicianID string) error {
	call := Call{Tenant: tenant, WorkOrderID: workOrderID, TechnicianID: technicianID}
	b.mu.Lock()
	hook := b.assignHook
	b.calls = append(b.calls, call)
	b.mu.Unlock()
	if hook != nil {
		hook(ctx, call)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if reason, ok := b.rejections[workOrderID]; ok {
		return &schedule.AssignmentError{WorkOrderID: workOrderID, TechnicianID: technicianID, Reason: reason, Err: schedule.ErrRejected}
	}
	idx := slices.IndexFunc(b.orders, func(w model.WorkOrder) bool { return w.ID == workOrderID })
	if idx < 0 {
		return &schedule.AssignmentError{WorkOrderID: workOrderID, TechnicianID: technicianID, Reason: "unknown work order", Err: schedule.ErrNotFound}
	}
	if technicianID != "" && !slices.ContainsFunc(b.techs, func(t model.Technician) bool { return t.ID == technicianID }) {
		return &schedule.AssignmentError{WorkOrderID: workOrderID, TechnicianID: technicianID, Reason: "unknown technician", Err: schedule.ErrRejected}
	}
	wo := &b.orders[idx]
	wo.TechnicianID = technicianID
	if technicianID != "" && wo.Status == model.StatusNew {
		wo.Status = model.StatusScheduled
	}
	return nil
}

// Reject makes every later assignment of workOrderID fail with reason.
func (b *Backend) Reject(workOrderID, reason string) {
	b.mu.Lock()
	b.rejections[workOrderID] = reason
	b.mu.Unlock()
}

// Accept clears a rejection set by Reject.
func (b *Backend) Accept(workOrderID string) {
	b.mu.Lock()
	delete(b.rejections, workOrderID)
	b.mu.Unlock()
}

// FailFetches queues errors returned by the next fetches, in order. A nil
// entry lets that fetch succeed.
func (b *Backend) FailFetches(errs ...error) {
	b.mu.Lock()
	b.fetchErrs = append(b.fetchErrs, errs...)
	b.mu.Unlock()
}

// BeforeAssign installs a hook run before each assignment is applied.
func (b *Backend) BeforeAssign(fn func(ctx context.Context, c Call)) {
	b.mu.Lock()
	b.assignHook = fn
	b.mu.Unlock()
}

// Put inserts or replaces a work order.
func (b *Backend) Put(wo model.WorkOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := slices.IndexFunc(b.orders, func(w model.WorkOrder) bool { return w.ID == wo.ID }); i >= 0 {
		b.orders[i] = wo
		return
	}
	b.orders = append(b.orders, wo)
}

// Remove deletes a work order, as if another dispatcher closed it.
func (b *Backend) Remove(id string) {
	b.mu.Lock()
	b.orders = slices.DeleteFunc(b.orders, func(w model.WorkOrder) bool { return w.ID == id })
	b.mu.Unlock()
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

func (b *Backend) Fetches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

type config struct {
	Fixture string `json:"fixture"`
}

func init() {
	if err := schedule.RegisterBackend("memory", func(conf map[string]any) (schedule.Backend, error) {
		var c config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, fmt.Errorf("memory backend config: %w", err)
		}
		if c.Fixture == "" {
			return New(nil, nil), nil
		}
		return FromFixture(c.Fixture)
	}); err != nil {
		panic(err)
	}
}
