// Package board owns one dispatch session: it fetches snapshots into the
// schedule store, serves memoized grid projections of the current snapshot
// and keeps the view state (loading, ready, error) the presentation renders.
package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kilianp07/dispatchboard/core/grid"
	"github.com/kilianp07/dispatchboard/core/logger"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/monitoring"
	"github.com/kilianp07/dispatchboard/core/queue"
	"github.com/kilianp07/dispatchboard/core/schedule"
)

var (
	// ErrUnavailable is returned by projections while the view is loading or
	// the last fetch failed. The presentation shows a retry prompt.
	ErrUnavailable = errors.New("schedule unavailable")
	ErrNoRange     = errors.New("no date range loaded")
)

type memoKey struct {
	version uint64
	kind    string
	from    model.Date
	to      model.Date
}

// Board is a single view session over one tenant's schedule.
type Board struct {
	tenant  string
	fetcher schedule.Fetcher
	store   *schedule.Store
	opts    grid.Options
	cfg     Config
	log     logger.Logger
	sink    coremetrics.MetricsSink
	now     func() time.Time

	mu   sync.Mutex
	rng  model.DateRange
	memo map[memoKey]any
}

// Option customizes a Board.
type Option func(*Board)

func WithSink(s coremetrics.MetricsSink) Option {
	return func(b *Board) {
		if s != nil {
			b.sink = s
		}
	}
}

// WithStore shares an existing store instead of creating one.
func WithStore(s *schedule.Store) Option {
	return func(b *Board) {
		if s != nil {
			b.store = s
		}
	}
}

// WithClock overrides time.Now for FetchedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a board session. It does not fetch anything until Load.
func New(tenant string, fetcher schedule.Fetcher, cfg Config, log logger.Logger, opts ...Option) (*Board, error) {
	if tenant == "" {
		return nil, fmt.Errorf("tenant required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.SetDefaults()
	gopts, err := cfg.Options()
	if err != nil {
		return nil, fmt.Errorf("board config: %w", err)
	}
	b := &Board{
		tenant:  tenant,
		fetcher: fetcher,
		store:   schedule.NewStore(),
		opts:    gopts,
		cfg:     cfg,
		log:     log,
		sink:    coremetrics.NopSink{},
		now:     time.Now,
		memo:    make(map[memoKey]any),
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

func (b *Board) Tenant() string { return b.tenant }

func (b *Board) Store() *schedule.Store { return b.store }

func (b *Board) Options() grid.Options { return b.opts }

// Range returns the date range the board currently fetches.
func (b *Board) Range() model.DateRange {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng
}

// Load switches the board to r and fetches it.
func (b *Board) Load(ctx context.Context, r model.DateRange) error {
	if _, err := model.NewDateRange(r.From, r.To); err != nil {
		return err
	}
	b.mu.Lock()
	b.rng = r
	b.mu.Unlock()
	return b.Refresh(ctx)
}

// Ensure loads r unless the current snapshot already covers it.
func (b *Board) Ensure(ctx context.Context, r model.DateRange) error {
	cur := b.Range()
	_, _, has := b.store.Snapshot()
	if has && b.store.Err() == nil && cur.Contains(r.From) && cur.Contains(r.To) {
		return nil
	}
	return b.Load(ctx, r)
}

// Refresh re-fetches the current range and replaces the snapshot wholesale.
// Responses overtaken by a newer fetch are discarded. Retry after a failed
// load is a plain Refresh.
func (b *Board) Refresh(ctx context.Context) error {
	r := b.Range()
	if r.From.IsZero() {
		return ErrNoRange
	}
	ticket := b.store.Begin()
	start := b.now()
	snap, err := b.fetcher.FetchSchedule(ctx, b.tenant, r)
	if err == nil {
		err = snap.Validate()
	}
	latency := b.now().Sub(start)
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		// abandoned by the caller, not a backend failure; the ticket stays
		// unresolved and the view keeps its state
		b.log.Debugf("fetch of %s abandoned: %v", r, err)
		return fmt.Errorf("fetch schedule %s: %w", r, err)
	}
	if err != nil {
		err = fmt.Errorf("fetch schedule %s: %w", r, err)
		if b.store.Fail(ticket, err) {
			b.log.Errorf("refresh failed: %v", err)
			monitoring.CaptureException(err, map[string]string{"module": "board", "tenant": b.tenant})
		}
		b.recordRefresh(coremetrics.RefreshEvent{Latency: latency, Error: err.Error()}, nil)
		return err
	}
	snap.Tenant = b.tenant
	if snap.Range.From.IsZero() {
		snap.Range = r
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = b.now()
	}
	if !b.store.Replace(ticket, snap) {
		b.log.Debugf("discarded stale snapshot for %s", r)
		return nil
	}
	b.recordRefresh(coremetrics.RefreshEvent{Success: true, Latency: latency}, &snap)
	return nil
}

func (b *Board) recordRefresh(ev coremetrics.RefreshEvent, snap *model.Snapshot) {
	rec, ok := b.sink.(coremetrics.RefreshRecorder)
	if !ok {
		return
	}
	ev.Tenant = b.tenant
	ev.Time = b.now()
	ev.Version = b.store.View().Version
	if snap != nil {
		g := grid.Project(snap.WorkOrders, snap.Technicians, snap.Range, b.opts)
		ev.Technicians = len(snap.Technicians)
		ev.WorkOrders = len(snap.WorkOrders)
		ev.Unassigned = len(g.Unassigned)
		ev.Conflicts = g.ConflictCount()
	}
	if err := rec.RecordRefresh(ev); err != nil {
		b.log.Warnf("record refresh: %v", err)
	}
}

// Snapshot returns the last confirmed snapshot.
func (b *Board) Snapshot() (model.Snapshot, bool) {
	s, _, ok := b.store.Snapshot()
	return s, ok
}

func (b *Board) View() schedule.View { return b.store.View() }

// current returns the renderable snapshot or ErrUnavailable.
func (b *Board) current() (model.Snapshot, uint64, error) {
	if err := b.store.Err(); err != nil {
		return model.Snapshot{}, 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s, v, ok := b.store.Snapshot()
	if !ok {
		return model.Snapshot{}, 0, ErrUnavailable
	}
	return s, v, nil
}

func (b *Board) memoize(k memoKey, build func() any) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.memo[k]; ok {
		return v
	}
	for old := range b.memo {
		if old.version != k.version {
			delete(b.memo, old)
		}
	}
	v := build()
	b.memo[k] = v
	return v
}

// Week projects the Monday-start week containing anchor. The grid is shared
// with every caller of the same snapshot version and must not be modified.
func (b *Board) Week(anchor model.Date) (grid.Grid, error) {
	s, v, err := b.current()
	if err != nil {
		return grid.Grid{}, err
	}
	r := grid.WeekRange(anchor)
	out := b.memoize(memoKey{version: v, kind: "week", from: r.From, to: r.To}, func() any {
		return grid.Project(s.WorkOrders, s.Technicians, r, b.opts)
	})
	return out.(grid.Grid), nil
}

// Day projects the mobile single-day view. Like Week, the result is shared
// and read-only.
func (b *Board) Day(d model.Date) (grid.DayView, error) {
	s, v, err := b.current()
	if err != nil {
		return grid.DayView{}, err
	}
	out := b.memoize(memoKey{version: v, kind: "day", from: d, to: d}, func() any {
		return grid.Day(s.WorkOrders, s.Technicians, d, b.opts)
	})
	return out.(grid.DayView), nil
}

// Unassigned returns the ranked unassigned queue of the current snapshot.
// The slice is the caller's own.
func (b *Board) Unassigned() ([]model.WorkOrder, error) {
	s, v, err := b.current()
	if err != nil {
		return nil, err
	}
	out := b.memoize(memoKey{version: v, kind: "queue"}, func() any {
		return queue.Rank(s.WorkOrders)
	})
	return slices.Clone(out.([]model.WorkOrder)), nil
}

// Utilization summarizes the load of the week containing anchor.
func (b *Board) Utilization(anchor model.Date) (grid.Utilization, error) {
	g, err := b.Week(anchor)
	if err != nil {
		return grid.Utilization{}, err
	}
	return grid.Utilize(g, b.cfg.WorkdayMinutes), nil
}

// Run refreshes the board periodically until ctx is cancelled. Failures are
// logged and surface through View; the loop keeps going.
func (b *Board) Run(ctx context.Context) error {
	defer monitoring.Recover()
	if b.cfg.RefreshIntervalSeconds <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(time.Duration(b.cfg.RefreshIntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.Refresh(ctx); err != nil && !errors.Is(err, ErrNoRange) {
				b.log.Warnf("periodic refresh: %v", err)
			}
		}
	}
}

// Close releases store subscribers.
func (b *Board) Close() { b.store.Close() }
